package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/dispatch"
	"github.com/ziadkadry99/flowchat/internal/export"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/preview"
	"github.com/ziadkadry99/flowchat/internal/resolve"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// newTestServer wires a web server against a fake service replying with
// reply.
func newTestServer(t *testing.T, cfg Config, reply map[string]string) *Server {
	t.Helper()
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(svc.Close)

	state := surface.New(transcript.NewStore(), theme.Dark)
	res := resolve.New(&diagrams.EmbedRenderer{}, markup.NewMarkdown(), state)
	prev, err := preview.New(8)
	require.NoError(t, err)
	exp := export.New(t.TempDir(), state)

	ctrl := controller.New(controller.Deps{
		State:      state,
		Dispatcher: dispatch.New(client.New(svc.URL, 0), res, state),
		Previewer:  prev,
		Exporter:   exp,
		Themes:     &theme.MemoryStore{},
	})
	return New(cfg, ctrl, exp)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := do(t, s, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t, Config{AllowAll: true}, nil)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := do(t, s, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := do(t, s, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "mermaid-container")
}

func TestStateSnapshot(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := do(t, s, httptest.NewRequest("GET", "/api/state", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var snap surface.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, surface.PanePlaceholder, snap.Diagram.State)
	assert.Equal(t, markup.NoFilesChosen, snap.CodeFilenames)
	assert.Equal(t, theme.Dark, snap.Theme)
}

func TestListKinds(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := do(t, s, httptest.NewRequest("GET", "/api/events", nil))

	require.Equal(t, http.StatusOK, w.Code)
	kinds := decode(t, w)["kinds"].([]any)
	assert.Len(t, kinds, 12)
}

func TestUnknownEvent(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := do(t, s, httptest.NewRequest("POST", "/api/events/launch", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskQuestionEvent(t *testing.T) {
	s := newTestServer(t, Config{}, map[string]string{"qa_answer": "A *loop*."})

	w := do(t, s, postForm("/api/events/ask_question", url.Values{"query": {"what is this?"}}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp eventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, dispatch.OutcomeResolved, resp.Outcome.Kind)
	require.Len(t, resp.State.Transcript, 2)
	assert.Equal(t, "what is this?", resp.State.Transcript[0].Content)
	assert.Contains(t, resp.State.Transcript[1].Content, "<em>loop</em>")
	assert.Empty(t, resp.State.Query)
}

var visualIDPattern = regexp.MustCompile(`id="(graph-[^"]+)"`)

func TestDiagramRenderFailedEvent(t *testing.T) {
	s := newTestServer(t, Config{}, map[string]string{"diagram": "graph TD\n  A-->B"})

	w := do(t, s, postForm("/api/events/generate_diagram", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)
	var resp eventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "embed", resp.State.DiagramKind)
	m := visualIDPattern.FindStringSubmatch(resp.State.Diagram.Markup)
	require.Len(t, m, 2)

	w = do(t, s, postForm("/api/events/diagram_render_failed", url.Values{
		"visual_id": {m[1]},
		"detail":    {"Lexical error on line 2"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	resp = eventResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, surface.PaneError, resp.State.Diagram.State)
	assert.Contains(t, resp.State.Diagram.Markup, "Lexical error on line 2")
	assert.Empty(t, resp.State.DiagramKind)
	require.Len(t, resp.State.Transcript, 2)
	assert.Equal(t, "<strong>AI:</strong> Could not generate diagram.", resp.State.Transcript[1].Content)
}

func TestSelectCodeFilesMultipart(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("code_files", "main.py")
	require.NoError(t, err)
	fw.Write([]byte("print(1 < 2)"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/events/select_code_files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(t, s, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp eventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "main.py", resp.State.CodeFilenames)
	assert.Equal(t, "<pre><code>print(1 &lt; 2)</code></pre>", resp.State.Code.Markup)
}

func TestNoticeIsConflict(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := do(t, s, httptest.NewRequest("POST", "/api/events/toggle_fullscreen", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, controller.NoticeNoFullscreen, decode(t, w)["notice"])

	w = do(t, s, httptest.NewRequest("POST", "/api/events/export_code", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, export.NoticeNoCode, decode(t, w)["notice"])
}

func TestExportDownloads(t *testing.T) {
	s := newTestServer(t, Config{}, map[string]string{"code": "x = 1", "diagram": "graph TD\n  A-->B"})

	w := do(t, s, httptest.NewRequest("GET", "/api/export/code", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, export.NoticeNoCode, decode(t, w)["notice"])

	w = do(t, s, httptest.NewRequest("POST", "/api/events/generate_code", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, httptest.NewRequest("GET", "/api/export/code", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x = 1", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="code.py"`)

	// The embed renderer leaves SVG export to the page.
	w = do(t, s, httptest.NewRequest("GET", "/api/export/diagram", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, export.NoticeNotSVG, decode(t, w)["notice"])

	w = do(t, s, httptest.NewRequest("GET", "/api/export/pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketPushesState(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello wsResponse
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.NotEmpty(t, hello.ClientID)
	require.NotNil(t, hello.State)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "event", Kind: "toggle_theme"}))

	for {
		var msg wsResponse
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "state" && msg.State.Theme == theme.Light {
			break
		}
	}
}

func TestWebSocketNotice(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello wsResponse
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "event", Kind: "export_diagram"}))
	var msg wsResponse
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notice", msg.Type)
	assert.Equal(t, export.NoticeNoDiagram, msg.Content)
}
