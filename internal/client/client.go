package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"
)

// Form field names understood by the service.
const (
	FieldAction      = "action"
	FieldCodeFiles   = "code_files"
	FieldDiagramFile = "diagram_file"
	FieldQuery       = "query"
)

// File is an uploaded file: its original name and raw bytes. An empty
// ContentType is derived from the extension or the content.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// MediaType returns the declared or detected content type of f.
func (f File) MediaType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if t := mime.TypeByExtension(filepath.Ext(f.Name)); t != "" {
		return t
	}
	return http.DetectContentType(f.Content)
}

// Request is the payload of a single /process call.
type Request struct {
	Action      string
	CodeFiles   []File
	DiagramFile *File
	Query       string
}

// Response carries whichever artifacts the service produced. Every field is
// optional.
type Response struct {
	Diagram  string `json:"diagram,omitempty"`
	Code     string `json:"code,omitempty"`
	QAAnswer string `json:"qa_answer,omitempty"`
	Error    string `json:"error,omitempty"`
}

// APIError is returned when the service answers with a non-2xx status or an
// error field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the service's /process endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the service at baseURL. A zero timeout means no
// deadline beyond the caller's context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service address the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

// Process sends one request and decodes the reply.
func (c *Client) Process(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	decodeErr := json.Unmarshal(respBody, &resp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := resp.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", httpResp.StatusCode)
		}
		return nil, &APIError{Status: httpResp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if resp.Error != "" {
		return nil, &APIError{Status: httpResp.StatusCode, Message: resp.Error}
	}
	return &resp, nil
}

func encodeForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range req.CodeFiles {
		if err := writeFile(w, FieldCodeFiles, f); err != nil {
			return nil, "", err
		}
	}
	if req.DiagramFile != nil {
		if err := writeFile(w, FieldDiagramFile, *req.DiagramFile); err != nil {
			return nil, "", err
		}
	}
	if req.Query != "" {
		if err := w.WriteField(FieldQuery, req.Query); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField(FieldAction, req.Action); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, field string, f File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.MediaType())
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("adding %s: %w", f.Name, err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	return nil
}
