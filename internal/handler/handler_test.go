package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebuilder-backend/internal/broadcast"
	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/service"
	"sitebuilder-backend/internal/storage"
)

const siteReply = `{"name":"landing","description":"A landing page","files":{
	"index.html":{"content":"<html><head><title>x</title></head><body><h1>Hello</h1></body></html>","type":"html"},
	"style.css":{"content":"h1{color:red}","type":"css"}}}`

const knownProject = "project-1700000000000-abc123def"

type stubBackend struct {
	reply string
	err   error
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	return b.reply, b.err
}

type testEnv struct {
	router   *gin.Engine
	backend  *stubBackend
	hub      *broadcast.Hub
	sessions *service.SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		backend: &stubBackend{reply: siteReply},
		hub:     broadcast.NewHub(),
	}
	renderer := preview.NewReconstructor(preview.Options{})
	client := generation.NewClient(env.backend, nil, generation.Options{Timeout: time.Second})
	projects := service.NewProjectService(storage.NewMemoryStorage(), storage.NewMemoryIndex(), client, renderer, env.hub, "")
	env.sessions = service.NewSessionService(projects, renderer, env.hub, service.SessionOptions{
		SaveDelay:    10 * time.Millisecond,
		PreviewDelay: 5 * time.Millisecond,
		SaveTimeout:  time.Second,
	})
	t.Cleanup(env.sessions.Stop)
	t.Cleanup(env.hub.Close)

	cfg := &config.Config{CORS: config.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
	}}
	env.router = SetupRouter(cfg, Handlers{
		Project: NewProjectHandler(projects),
		Session: NewSessionHandler(env.sessions),
		Events:  NewEventsHandler(env.hub),
	})
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/health", "/api/health"} {
		w := env.do(http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode(t, w)["status"])
	}
}

func TestGenerateProjectPersistsAndServes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/generate-project", `{"description":"a landing page for a bakery"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "landing", body["name"])
	assert.EqualValues(t, 2, body["filesCreated"])
	projectID, _ := body["projectId"].(string)
	require.NotEmpty(t, projectID)
	assert.Equal(t, "/user-projects/"+projectID+"/index.html", body["previewUrl"])

	w = env.do(http.MethodGet, "/user-projects/"+projectID+"/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Hello</h1>")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))

	w = env.do(http.MethodGet, "/user-projects/"+projectID+"/style.css", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")

	// 无扩展名的未知路径回退到 index.html
	w = env.do(http.MethodGet, "/user-projects/"+projectID+"/about", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Hello</h1>")

	w = env.do(http.MethodGet, "/user-projects/"+projectID+"/missing.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/user-projects/"+projectID+"/../../etc/passwd", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["projects"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, projectID, list[0].(map[string]any)["id"])

	w = env.do(http.MethodGet, "/api/projects/"+projectID+"/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	files := decode(t, w)["files"].(map[string]any)
	assert.Contains(t, files, "style.css")

	w = env.do(http.MethodGet, "/api/projects/"+projectID+"/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Hello")
}

func TestGenerateProjectErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/generate-project", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.backend.reply = "sorry, I cannot help with that"
	w = env.do(http.MethodPost, "/api/generate-project", `{"description":"portfolio"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env.backend.err = errors.New("invalid api key")
	w = env.do(http.MethodPost, "/api/generate-project", `{"description":"portfolio"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["hint"])
}

func TestSaveFileBroadcasts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/create-project",
		`{"projectId":"`+knownProject+`","files":{"index.html":{"content":"<p>v1</p>","type":"html"}}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	sub := env.hub.Subscribe(knownProject)
	defer env.hub.Unsubscribe(sub)

	w = env.do(http.MethodPost, "/api/save-file",
		`{"projectId":"`+knownProject+`","filePath":"index.html","content":"<p>v2</p>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	select {
	case evt := <-sub.Events():
		assert.Equal(t, broadcast.EventFileUpdated, evt.Type)
		assert.Equal(t, "index.html", evt.Path)
	case <-time.After(time.Second):
		t.Fatal("no file-updated event")
	}

	w = env.do(http.MethodGet, "/user-projects/"+knownProject+"/index.html", "")
	assert.Equal(t, "<p>v2</p>", w.Body.String())

	w = env.do(http.MethodPost, "/api/save-file", `{"projectId":"../x","filePath":"a.html","content":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/create-project", `{"projectId":"`+knownProject+`","files":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatelessPreview(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/preview", `{"files":{"index.html":{"content":"<h2>Draft</h2>"}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h2>Draft</h2>")

	w = env.do(http.MethodPost, "/api/preview", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/sessions", `{"title":"Bakery"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["sessionId"].(string)
	base := "/api/sessions/" + sessionID

	w = env.do(http.MethodPost, base+"/messages", `{"message":"a bakery landing page"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["projectId"])
	assert.Len(t, body["messages"], 2)

	w = env.do(http.MethodPut, base+"/files", `{"path":"index.html","content":"<h1>Fresh bread</h1>"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "html", decode(t, w)["type"])

	assert.Eventually(t, func() bool {
		return strings.Contains(env.do(http.MethodGet, base+"/preview", "").Body.String(), "Fresh bread")
	}, 2*time.Second, 10*time.Millisecond)

	w = env.do(http.MethodGet, base+"/tree", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tree"], 2)

	w = env.do(http.MethodPut, base+"/files", `{"path":"../escape.html","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, base+"/files/retry", `{"path":"never-edited.html"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, base, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionMessageFailureKeepsChatLog(t *testing.T) {
	env := newTestEnv(t)
	env.backend.err = errors.New("rate limit exceeded")

	w := env.do(http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["sessionId"].(string)

	w = env.do(http.MethodPost, "/api/sessions/"+sessionID+"/messages", `{"message":"a blog"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["error"])
	assert.Len(t, body["messages"], 2)
}

func TestWebSocketPushChannel(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?projectId=" + knownProject
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg eventsWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)
	assert.Equal(t, knownProject, msg.ProjectID)

	require.NoError(t, conn.WriteJSON(eventsWSInbound{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)

	env.hub.Notify(knownProject, "css/site.css")
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, broadcast.EventFileUpdated, msg.Type)
	assert.Equal(t, "css/site.css", msg.Path)

	require.NoError(t, conn.WriteJSON(eventsWSInbound{Type: "subscribe", ProjectID: "../bad"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid_argument", msg.Code)

	require.NoError(t, conn.WriteJSON(eventsWSInbound{Type: "shout"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
}

func TestSSEPushChannel(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/projects/"+knownProject+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	require.Equal(t, "connected", readEvent())
	env.hub.Notify(knownProject, "index.html")
	assert.Equal(t, broadcast.EventFileUpdated, readEvent())

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"path":"index.html"`)
}

func TestStatusFor(t *testing.T) {
	rateLimited := &generation.BackendError{Provider: "openai", StatusCode: 429, Err: errors.New("slow down")}
	cases := map[error]int{
		generation.ErrInvalidRequest: http.StatusBadRequest,
		storage.ErrPathOutsideRoot:   http.StatusBadRequest,
		storage.ErrProjectNotFound:   http.StatusNotFound,
		service.ErrSessionNotFound:   http.StatusNotFound,
		service.ErrSessionBusy:       http.StatusConflict,
		generation.ErrEmptyProject:   http.StatusUnprocessableEntity,
		generation.ErrNoBackend:      http.StatusServiceUnavailable,
		errors.New("disk on fire"):   http.StatusInternalServerError,
		rateLimited:                  http.StatusBadGateway,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
