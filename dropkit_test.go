package dropkit_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dropkit-go/dropkit"
)

func newTestApp(t *testing.T, cfg dropkit.Config) (*dropkit.App, *httptest.Server) {
	t.Helper()
	if cfg.Staging.Dir == "" {
		cfg.Staging.Dir = t.TempDir()
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = t.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	app, err := dropkit.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return app, srv
}

func stageFile(t *testing.T, srv *httptest.Server, filename, content string) string {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	tempID, _ := body["temp_id"].(string)
	require.NotEmpty(t, tempID)
	return tempID
}

func TestApp_ServesIndexAndHealth(t *testing.T) {
	_, srv := newTestApp(t, dropkit.Config{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "CSV upload")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_StagingRejectsNonCSV(t *testing.T) {
	_, srv := newTestApp(t, dropkit.Config{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	part.Write([]byte("hello"))
	writer.Close()

	resp, err := http.Post(srv.URL+"/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestApp_MetricsEndpoint(t *testing.T) {
	_, srv := newTestApp(t, dropkit.Config{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_EndToEndBatch(t *testing.T) {
	archiveDir := t.TempDir()

	var mu sync.Mutex
	var archivedBatch string
	cfg := dropkit.Config{
		Archive: dropkit.ArchiveConfig{Dir: archiveDir},
		OnBatchArchived: func(batchID string, filenames []string) {
			mu.Lock()
			archivedBatch = batchID
			mu.Unlock()
		},
	}
	_, srv := newTestApp(t, cfg)

	tempID := stageFile(t, srv, "report.csv", "id,name\n1,alice\n")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readState := func() map[string]any {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var st map[string]any
		require.NoError(t, json.Unmarshal(msg, &st))
		return st
	}

	_ = readState() // initial

	err = conn.WriteJSON(map[string]any{
		"type": "drop",
		"files": []map[string]any{
			{"name": "report.csv", "size": 16, "ref": tempID},
		},
	})
	require.NoError(t, err)

	st := readState()
	require.Len(t, st["files"], 1)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "submit"}))

	deadline := time.Now().Add(3 * time.Second)
	for {
		st = readState()
		processing, _ := st["processing"].(bool)
		files, _ := st["files"].([]any)
		if !processing && len(files) == 0 {
			break
		}
		require.True(t, time.Now().Before(deadline), "upload never settled: %v", st)
	}
	require.Empty(t, st["error"])

	mu.Lock()
	batchID := archivedBatch
	mu.Unlock()
	require.NotEmpty(t, batchID)

	data, err := os.ReadFile(filepath.Join(archiveDir, batchID, "report.csv"))
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,alice\n", string(data))
}

func TestApp_SubmitStaleRefSurfacesError(t *testing.T) {
	_, srv := newTestApp(t, dropkit.Config{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readState := func() map[string]any {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var st map[string]any
		require.NoError(t, json.Unmarshal(msg, &st))
		return st
	}

	_ = readState() // initial

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "drop",
		"files": []map[string]any{
			{"name": "gone.csv", "size": 8, "ref": "never-staged"},
		},
	}))
	_ = readState() // staged client-side

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "submit"}))

	deadline := time.Now().Add(3 * time.Second)
	for {
		st := readState()
		if errMsg, _ := st["error"].(string); errMsg != "" {
			require.Contains(t, errMsg, "gone.csv")
			return
		}
		require.True(t, time.Now().Before(deadline), "error never surfaced")
	}
}
