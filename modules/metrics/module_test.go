package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

func TestModuleTypeIsRegistered(t *testing.T) {
	_, ok := servicetest.DefaultModuleResolver().Lookup(ModuleName)
	assert.True(t, ok)
}

func TestExportDisabled(t *testing.T) {
	m, err := NewModule(config.FromMap(map[string]string{"metrics.export.enabled": "false"}))
	require.NoError(t, err)

	inj, err := inject.New(nil, m)
	require.NoError(t, err)

	_, err = inject.Get[*prometheus.Registry](inj, RegistryKey)
	require.NoError(t, err)
	assert.False(t, inj.Has(HandlerKey))
}

func TestExportEnabled(t *testing.T) {
	m, err := NewModule(config.FromMap(map[string]string{"metrics.export.enabled": "true"}))
	require.NoError(t, err)

	inj, err := inject.New(nil, m)
	require.NoError(t, err)

	reg, err := inject.Get[*prometheus.Registry](inj, RegistryKey)
	require.NoError(t, err)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_created_total", Help: "Orders created."})
	reg.MustRegister(counter)
	counter.Inc()

	handler, err := inject.Get[http.Handler](inj, HandlerKey)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orders_created_total 1")
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewRegistry(false)
	b := NewRegistry(false)

	opts := prometheus.CounterOpts{Name: "requests_total", Help: "Requests."}
	require.NoError(t, a.Register(prometheus.NewCounter(opts)))
	assert.NoError(t, b.Register(prometheus.NewCounter(opts)))
}

func TestRuntimeCollectors(t *testing.T) {
	families, err := NewRegistry(true).Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewModule(config.FromMap(map[string]string{"metrics.export.enabled": "maybe"}))
	assert.ErrorIs(t, err, config.ErrBind)
}
