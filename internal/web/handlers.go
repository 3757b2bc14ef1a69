package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/export"
	"github.com/ziadkadry99/flowchat/internal/surface"
)

// maxUploadMemory bounds the in-memory part of a multipart upload.
const maxUploadMemory = 32 << 20

// Form fields of a browser render failure report.
const (
	fieldVisualID = "visual_id"
	fieldDetail   = "detail"
)

// fileFields are the multipart fields that carry file selections.
var fileFields = []string{client.FieldCodeFiles, client.FieldDiagramFile, "files"}

// eventResponse is the JSON reply of POST /api/events/{kind}.
type eventResponse struct {
	controller.Reply
	State surface.Snapshot `json:"state"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State().Snapshot())
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]controller.EventKind{"kinds": s.ctrl.Kinds()})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := readEvent(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Results reach the page over the websocket, so a dropped request must
	// not abort the dispatch.
	reply, err := s.ctrl.Handle(context.WithoutCancel(r.Context()), ev)
	if errors.Is(err, controller.ErrUnknownEvent) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if reply.Notice != "" {
		status = http.StatusConflict
	}
	writeJSON(w, status, eventResponse{Reply: reply, State: s.ctrl.State().Snapshot()})
}

// readEvent builds an event from the URL kind, the text form fields and any
// uploaded files.
func readEvent(r *http.Request) (controller.Event, error) {
	ev := controller.Event{Kind: controller.EventKind(chi.URLParam(r, "kind"))}

	if r.Header.Get("Content-Type") != "" {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return ev, fmt.Errorf("parsing form: %w", err)
		}
	}
	ev.Query = r.FormValue(client.FieldQuery)
	ev.VisualID = r.FormValue(fieldVisualID)
	ev.Detail = r.FormValue(fieldDetail)

	if r.MultipartForm == nil {
		return ev, nil
	}
	for _, field := range fileFields {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := readUpload(fh)
			if err != nil {
				return ev, err
			}
			ev.Files = append(ev.Files, f)
		}
	}
	return ev, nil
}

func readUpload(fh *multipart.FileHeader) (client.File, error) {
	src, err := fh.Open()
	if err != nil {
		return client.File{}, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return client.File{}, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return client.File{Name: fh.Filename, ContentType: ct, Content: data}, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		err         error
		name        string
		contentType string
	)
	switch chi.URLParam(r, "artifact") {
	case "diagram":
		data, err = s.exporter.DiagramSVG()
		name, contentType = export.DiagramFile, "image/svg+xml"
	case "code":
		data, err = s.exporter.Code()
		name, contentType = export.CodeFile, "text/plain; charset=utf-8"
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown artifact"})
		return
	}

	if notice := export.Notice(err); notice != "" {
		writeJSON(w, http.StatusConflict, map[string]string{"notice": notice})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
