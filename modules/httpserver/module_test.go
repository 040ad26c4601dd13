package httpserver

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/lifecycle"
	"github.com/GoCodeAlone/servicetest/logging"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
)

// helloRoutes adds a GET /hello route to the service router.
var helloRoutes = inject.ModuleFunc(func(b inject.Binder) error {
	return b.BindProvider("routes.hello", func(inj *inject.Injector) (any, error) {
		r, err := inject.Get[chi.Router](inj, RouterKey)
		if err != nil {
			return nil, err
		}
		r.Get("/hello", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "hello")
		})
		return true, nil
	})
})

func startContainer(t *testing.T, cfg *config.Config, extra ...inject.Module) (*inject.Injector, *Server) {
	t.Helper()

	m, err := NewModule(cfg)
	require.NoError(t, err)

	modules := append([]inject.Module{inject.LifecycleModule(), m}, extra...)
	inj, err := inject.New(logging.NewTesting(t), modules...)
	require.NoError(t, err)

	lc, ok := inj.Lifecycle()
	require.True(t, ok)
	require.NoError(t, lc.ExecuteTo(context.Background(), lifecycle.AnnounceStage))
	t.Cleanup(func() {
		_ = lc.ExecuteTo(context.Background(), lifecycle.StopStage)
	})

	srv, err := inject.Get[*Server](inj, ServerKey)
	require.NoError(t, err)
	return inj, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestModuleIsRegistered(t *testing.T) {
	mt, ok := servicetest.DefaultModuleResolver().Lookup(ModuleName)
	require.True(t, ok)
	assert.NotNil(t, mt.WithConfig)
}

func TestServerServesRoutesOnEphemeralPort(t *testing.T) {
	cfg := config.FromMap(map[string]string{
		"httpserver.port":             "0",
		"httpserver.shutdown-timeout": "0s",
	})
	_, srv := startContainer(t, cfg, helloRoutes)

	require.NotZero(t, srv.Port())
	code, body := get(t, srv.URL()+"/hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body)

	code, _ = get(t, srv.URL()+"/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerStopReleasesPort(t *testing.T) {
	m, err := NewModule(config.FromMap(map[string]string{"httpserver.shutdown-timeout": "1s"}))
	require.NoError(t, err)
	inj, err := inject.New(logging.Nop(), inject.LifecycleModule(), m, helloRoutes)
	require.NoError(t, err)
	lc, _ := inj.Lifecycle()
	srv, err := inject.Get[*Server](inj, ServerKey)
	require.NoError(t, err)

	assert.Empty(t, srv.URL())
	require.NoError(t, lc.ExecuteTo(context.Background(), lifecycle.AnnounceStage))
	url := srv.URL()
	require.NotEmpty(t, url)

	require.NoError(t, lc.ExecuteTo(context.Background(), lifecycle.StopStage))
	assert.Empty(t, srv.Addr())
	assert.Zero(t, srv.Port())

	client := &http.Client{Timeout: time.Second}
	_, err = client.Get(url + "/hello")
	assert.Error(t, err)
}

func TestServerStartStopErrors(t *testing.T) {
	srv := NewServer(DefaultConfig(), http.NotFoundHandler(), nil)

	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotStarted)
	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyStarted)
	require.NoError(t, srv.Stop(context.Background()))
}

func TestDefaultsApplyToMissingKeys(t *testing.T) {
	m, err := NewModule(config.FromMap(map[string]string{"httpserver.read-timeout": "2s"}))
	require.NoError(t, err)
	inj, err := inject.New(logging.Nop(), m)
	require.NoError(t, err)
	srv, err := inject.Get[*Server](inj, ServerKey)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, srv.config.ReadTimeout)
	assert.Equal(t, "127.0.0.1", srv.config.Host)
	assert.Equal(t, 30*time.Second, srv.config.ShutdownTimeout)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "port out of range", values: map[string]string{"httpserver.port": "70000"}},
		{name: "port not a number", values: map[string]string{"httpserver.port": "http"}},
		{name: "bad duration", values: map[string]string{"httpserver.idle-timeout": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModule(config.FromMap(tt.values))
			assert.ErrorIs(t, err, config.ErrBind)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := config.FromMap(map[string]string{
		"httpserver.shutdown-timeout": "0s",
		"metrics.export.enabled":      "true",
	})
	mm, err := metrics.NewModule(cfg)
	require.NoError(t, err)
	_, srv := startContainer(t, cfg, mm, helloRoutes)

	code, _ := get(t, srv.URL()+"/hello")
	require.Equal(t, http.StatusOK, code)

	code, body := get(t, srv.URL()+MetricsPath)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `http_requests_total{code="200",method="get"} 1`)
}

func TestMetricsEndpointAbsentWhenExportDisabled(t *testing.T) {
	cfg := config.FromMap(map[string]string{"httpserver.shutdown-timeout": "0s"})
	mm, err := metrics.NewModule(cfg)
	require.NoError(t, err)
	_, srv := startContainer(t, cfg, mm)

	code, _ := get(t, srv.URL()+MetricsPath)
	assert.Equal(t, http.StatusNotFound, code)
}
