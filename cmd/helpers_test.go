package cmd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"sonora/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestHelper runs a fully wired server against a temporary library
type TestHelper struct {
	Server      *httptest.Server
	App         *Server
	Config      *config.Config
	TestDataDir string
}

// NewTestHelper creates a new test helper with a temporary test environment
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDir := t.TempDir()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.SettingsFile = filepath.Join(testDir, "settings.json")
	cfg.Locale = "en"

	app := NewServer(cfg, zaptest.NewLogger(t))
	app.Start()

	server := httptest.NewServer(app.Router())

	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	cfg.Server.Host = host
	cfg.Server.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	h := &TestHelper{
		Server:      server,
		App:         app,
		Config:      cfg,
		TestDataDir: testDir,
	}
	t.Cleanup(h.Cleanup)
	return h
}

// Cleanup cleans up test resources
func (h *TestHelper) Cleanup() {
	h.Server.Close()
	h.App.Stop()
}

// CreateTestFile creates a test file with specified content and returns its path
func (h *TestHelper) CreateTestFile(t *testing.T, relativePath string, content []byte) string {
	t.Helper()
	fullPath := filepath.Join(h.TestDataDir, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, content, 0644))
	return fullPath
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// GetJSON makes a GET request and unmarshals the JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target any) *http.Response {
	t.Helper()
	return h.decode(t, h.MakeRequest(t, http.MethodGet, path, nil), target)
}

// PostJSON makes a POST request with a JSON body and unmarshals the JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, requestBody, target any) *http.Response {
	t.Helper()
	return h.decode(t, h.MakeRequest(t, http.MethodPost, path, requestBody), target)
}

func (h *TestHelper) decode(t *testing.T, resp *http.Response, target any) *http.Response {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
	return resp
}

// ConnectWebSocket connects to a WebSocket endpoint
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + h.Server.URL[4:] + path

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// registration with the hub is asynchronous
	time.Sleep(50 * time.Millisecond)
	return conn
}

// silentWAV builds a mono 16-bit 8 kHz WAV holding seconds of silence
func silentWAV(seconds int) []byte {
	const byteRate = 8000 * 2
	dataLen := byteRate * seconds

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	for _, field := range []any{uint32(16), uint16(1), uint16(1), uint32(8000), uint32(byteRate), uint16(2), uint16(16)} {
		binary.Write(&buf, binary.LittleEndian, field)
	}
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
