package servicetest_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/logging"
	"github.com/GoCodeAlone/servicetest/modules/cache"
	"github.com/GoCodeAlone/servicetest/modules/database"
	"github.com/GoCodeAlone/servicetest/modules/httpclient"
	"github.com/GoCodeAlone/servicetest/modules/httpserver"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
	"github.com/GoCodeAlone/servicetest/modules/scheduler"
)

// greetingModule serves GET /hello with the service's name and counts the
// requests in the service's metrics registry.
func greetingModule() inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindProvider("greeting.routes", func(inj *inject.Injector) (any, error) {
			name, err := inject.Get[string](inj, servicetest.ServiceNameKey)
			if err != nil {
				return nil, err
			}
			r, err := inject.Get[chi.Router](inj, httpserver.RouterKey)
			if err != nil {
				return nil, err
			}
			reg, err := inject.Get[*prometheus.Registry](inj, metrics.RegistryKey)
			if err != nil {
				return nil, err
			}
			greetings := prometheus.NewCounter(prometheus.CounterOpts{Name: "greetings_total"})
			if err := reg.Register(greetings); err != nil {
				return nil, err
			}
			r.Get("/hello", func(w http.ResponseWriter, _ *http.Request) {
				greetings.Inc()
				_, _ = io.WriteString(w, "hello from "+name)
			})
			return greetings, nil
		})
	})
}

type greetingTest struct {
	Client *http.Client   `inject:"httpclient"`
	Config *config.Config `inject:"config"`
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDefaultRuleWithLinkedModules(t *testing.T) {
	var tc greetingTest
	rule, err := servicetest.DefaultRuleBuilder().
		WithLogger(logging.NewTesting(t)).
		AddService("orders", servicetest.NewServiceDefinitionBuilder().AddModule(greetingModule()).Build()).
		AddService("billing", servicetest.NewServiceDefinitionBuilder().AddModule(greetingModule()).Build()).
		Build(&tc)
	require.NoError(t, err)
	rule.Apply(t)

	require.NotNil(t, tc.Client)
	assert.Equal(t, "0", tc.Config.String(servicetest.HTTPServerPortKey, ""))

	orders, err := servicetest.Expose[*httpserver.Server](rule, "orders", httpserver.ServerKey)
	require.NoError(t, err)
	billing, err := servicetest.Expose[*httpserver.Server](rule, "billing", httpserver.ServerKey)
	require.NoError(t, err)

	// each service listens on its own ephemeral port
	require.NotZero(t, orders.Port())
	require.NotZero(t, billing.Port())
	assert.NotEqual(t, orders.Port(), billing.Port())

	code, body := get(t, tc.Client, orders.URL()+"/hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello from orders", body)
	code, body = get(t, tc.Client, billing.URL()+"/hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello from billing", body)

	// export is disabled by MetricsTweak, the registry still counts
	code, _ = get(t, tc.Client, orders.URL()+httpserver.MetricsPath)
	assert.Equal(t, http.StatusNotFound, code)
	greetings, err := servicetest.Expose[prometheus.Counter](rule, "orders", "greeting.routes")
	require.NoError(t, err)
	assert.NotNil(t, greetings)

	sched, err := servicetest.Expose[*scheduler.Scheduler](rule, "orders", scheduler.SchedulerKey)
	require.NoError(t, err)
	assert.Equal(t, 1, sched.PoolSize())

	grace, err := servicetest.Expose[string](rule, "orders", servicetest.ConfigKey(servicetest.HTTPServerShutdownTimeoutKey))
	require.NoError(t, err)
	assert.Equal(t, "0s", grace)
}

func TestServersStopAfterRule(t *testing.T) {
	rule, err := servicetest.DefaultRuleBuilder().
		WithLogger(logging.NewTesting(t)).
		AddService("orders", servicetest.NewServiceDefinitionBuilder().AddModule(greetingModule()).Build()).
		Build(nil)
	require.NoError(t, err)
	require.NoError(t, rule.Before(context.Background()))

	srv, err := servicetest.Expose[*httpserver.Server](rule, "orders", httpserver.ServerKey)
	require.NoError(t, err)
	url := srv.URL()
	client := &http.Client{Timeout: time.Second}
	code, _ := get(t, client, url+"/hello")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, rule.After(context.Background()))
	assert.Empty(t, srv.URL())
	_, err = client.Get(url + "/hello")
	assert.Error(t, err)
}

func TestLaterExtensionEnablesMetricsExport(t *testing.T) {
	var tc greetingTest
	rule, err := servicetest.DefaultRuleBuilder().
		WithLogger(logging.NewTesting(t)).
		AddTweakedModules(servicetest.TweakedModuleFuncs{
			ServiceConfig: func(string) config.Layer {
				return config.Layer{servicetest.MetricsExportEnabledKey: "true"}
			},
		}).
		AddService("orders", servicetest.NewServiceDefinitionBuilder().AddModule(greetingModule()).Build()).
		Build(&tc)
	require.NoError(t, err)
	rule.Apply(t)

	srv, err := servicetest.Expose[*httpserver.Server](rule, "orders", httpserver.ServerKey)
	require.NoError(t, err)

	code, _ := get(t, tc.Client, srv.URL()+"/hello")
	require.Equal(t, http.StatusOK, code)
	code, body := get(t, tc.Client, srv.URL()+httpserver.MetricsPath)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "greetings_total 1")
}

func TestSchedulerRunsJobsDuringTest(t *testing.T) {
	rule, err := servicetest.DefaultRuleBuilder().
		WithLogger(logging.NewTesting(t)).
		AddService("worker", servicetest.NewServiceDefinitionBuilder().Build()).
		Build(nil)
	require.NoError(t, err)
	rule.Apply(t)

	sched, err := servicetest.Expose[*scheduler.Scheduler](rule, "worker", scheduler.SchedulerKey)
	require.NoError(t, err)

	var ran atomic.Bool
	id, err := sched.RunOnce("warmup", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, err := sched.GetJob(id)
		return err == nil && job.Status == scheduler.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, ran.Load())
}

func TestServicesHavePrivateStorage(t *testing.T) {
	ctx := context.Background()
	schema := database.Migrations(database.Migration{
		ID:  "001_create_orders",
		SQL: `CREATE TABLE orders (id INTEGER PRIMARY KEY, item TEXT NOT NULL)`,
	})
	rule, err := servicetest.DefaultRuleBuilder().
		WithLogger(logging.NewTesting(t)).
		AddService("east", servicetest.NewServiceDefinitionBuilder().AddModule(schema).Build()).
		AddService("west", servicetest.NewServiceDefinitionBuilder().AddModule(schema).Build()).
		Build(nil)
	require.NoError(t, err)
	rule.Apply(t)

	countOrders := func(service string) int {
		d, err := servicetest.Expose[*database.Database](rule, service, database.DatabaseKey)
		require.NoError(t, err)
		db, err := d.DB()
		require.NoError(t, err)
		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n))
		return n
	}

	east, err := servicetest.Expose[*database.Database](rule, "east", database.DatabaseKey)
	require.NoError(t, err)
	db, err := east.DB()
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO orders (item) VALUES ('book')`)
	require.NoError(t, err)
	assert.Equal(t, 1, countOrders("east"))
	assert.Equal(t, 0, countOrders("west"))

	eastCache, err := servicetest.Expose[*cache.Cache](rule, "east", cache.CacheKey)
	require.NoError(t, err)
	westCache, err := servicetest.Expose[*cache.Cache](rule, "west", cache.CacheKey)
	require.NoError(t, err)
	require.NoError(t, eastCache.Set(ctx, "last-order", "book", 0))

	_, ok, err := westCache.Get(ctx, "last-order")
	require.NoError(t, err)
	assert.False(t, ok)
	_, embedded := eastCache.Embedded()
	assert.True(t, embedded)
}

func TestModuleTypesRegisteredByImport(t *testing.T) {
	names := servicetest.DefaultModuleResolver().Names()
	for _, want := range []string{
		cache.ModuleName,
		database.ModuleName,
		httpclient.ModuleName,
		httpserver.ModuleName,
		metrics.ModuleName,
		scheduler.ModuleName,
	} {
		assert.Contains(t, names, want)
	}
}
