package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// recordingLogger keeps formatted log lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{level, " ", msg}, args...)...))
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }

func (l *recordingLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestModuleIsRegistered(t *testing.T) {
	_, ok := servicetest.DefaultModuleResolver().Lookup(ModuleName)
	assert.True(t, ok)
}

func TestModuleBindsConfiguredClient(t *testing.T) {
	m, err := NewModule(config.FromMap(map[string]string{
		"httpclient.request-timeout":     "5s",
		"httpclient.max-idle-conns":      "7",
		"httpclient.disable-keep-alives": "true",
	}))
	require.NoError(t, err)

	inj, err := inject.New(nil, m)
	require.NoError(t, err)

	client, err := inject.Get[*http.Client](inj, ClientKey)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 7, transport.MaxIdleConns)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.True(t, transport.DisableKeepAlives)
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewModule(config.FromMap(map[string]string{"httpclient.request-timeout": "-1s"}))
	assert.ErrorIs(t, err, config.ErrBind)
}

func TestVerboseLogging(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	}))
	defer backend.Close()

	tests := []struct {
		name     string
		opts     VerboseOptions
		contains []string
	}{
		{
			name:     "basic",
			contains: []string{"Outgoing request", "GET " + backend.URL + "/ping", "200 OK"},
		},
		{
			name:     "headers and body",
			opts:     VerboseOptions{LogHeaders: true, LogBody: true},
			contains: []string{"Content-Type: text/plain", "pong"},
		},
		{
			name:     "truncated",
			opts:     VerboseOptions{LogHeaders: true, MaxBodyLogSize: 8},
			contains: []string{"[truncated]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			cfg := DefaultConfig()
			cfg.Verbose = true
			cfg.VerboseOptions = tt.opts
			client := NewClient(cfg, logger)

			resp, err := client.Get(backend.URL + "/ping")
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())

			// the caller still sees the full body
			assert.Equal(t, "pong", string(body))
			for _, want := range tt.contains {
				assert.Contains(t, logger.joined(), want)
			}
		})
	}
}

func TestVerboseLoggingRequestFailure(t *testing.T) {
	logger := &recordingLogger{}
	cfg := DefaultConfig()
	cfg.Verbose = true
	client := NewClient(cfg, logger)

	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	_, err := client.Get(url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http request failed")
	assert.Contains(t, logger.joined(), "Request failed")
}
