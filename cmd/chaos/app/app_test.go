package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment/internal/chaos/orchestrator"
	"enrollment/internal/enrollment/handler"
	"enrollment/internal/enrollment/seed"
	"enrollment/internal/enrollment/service"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
	"enrollment/internal/platform/config"
	"enrollment/internal/platform/token"
)

const (
	testSecret = "chaos-test-secret"
	testAdmin  = "ops-token"
)

// fastEnv shrinks every wait in the experiment to milliseconds.
func fastEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"JWT_SECRET_KEY":          testSecret,
		"ADMIN_API_TOKEN":         testAdmin,
		"CHAOS_SEED":              "7",
		"CHAOS_THINK_MIN":         "0s",
		"CHAOS_THINK_MAX":         "5ms",
		"CHAOS_FAULT_DELAY_MIN":   "20ms",
		"CHAOS_FAULT_DELAY_MAX":   "40ms",
		"CHAOS_FAULT_MIN_ELAPSED": "10ms",
		"CHAOS_RECOVERY_TIMEOUT":  "500ms",
		"CHAOS_RECOVERY_INTERVAL": "10ms",
		"LOG_LEVEL":               "error",
	} {
		t.Setenv(k, v)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc, err := service.New(ledger.NewInMemoryStore(), registration.NewInMemoryStore(), journal.NewInMemoryStore())
	require.NoError(t, err)
	require.NoError(t, svc.SeedCourses(context.Background(), seed.Defaults()))

	tokens, err := token.NewService(testSecret)
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.New(svc, token.NewMiddlewareAdapter(tokens), handler.WithAdminToken(testAdmin)).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func decodeVerdict(t *testing.T, out string) orchestrator.Verdict {
	t.Helper()
	var v orchestrator.Verdict
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestRunInProcess(t *testing.T) {
	fastEnv(t)

	out, err := execute(t, "run", "--in-process", "--format", "json")
	require.NoError(t, err)

	v := decodeVerdict(t, out)
	assert.Equal(t, orchestrator.ResultPass, v.Result)
	assert.Len(t, v.Phases, 6)
}

func TestRunOverHTTP(t *testing.T) {
	fastEnv(t)
	server := newServer(t)

	out, err := execute(t, "run", "--base-url", server.URL, "--format", "json", "--fallback")
	require.NoError(t, err)

	v := decodeVerdict(t, out)
	assert.Equal(t, orchestrator.ResultPass, v.Result)
	assert.Nil(t, v.Violation)
}

func TestRunTableOutput(t *testing.T) {
	fastEnv(t)

	out, err := execute(t, "run", "--in-process")
	require.NoError(t, err)
	assert.Contains(t, out, "high_load")
	assert.Contains(t, out, "result: pass")
}

func TestRunUnreachableServer(t *testing.T) {
	fastEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := execute(t, "run", "--base-url", server.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunFailed, "a run that never started is not a failed run")
}

func TestProbe(t *testing.T) {
	fastEnv(t)

	t.Run("healthy", func(t *testing.T) {
		out, err := execute(t, "probe", "--base-url", newServer(t).URL)
		require.NoError(t, err)
		assert.Contains(t, out, "healthy in")
	})

	t.Run("unhealthy", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer down.Close()

		out, err := execute(t, "probe", "--base-url", down.URL)
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "unhealthy")
	})
}

func TestOrchestratorConfig(t *testing.T) {
	cfg := config.Chaos{
		Seed:               9,
		CallTimeout:        time.Second,
		ConcurrentSessions: 20,
		HighLoadRequests:   50,
		HighLoadWorkers:    10,
		CancelProbability:  0.3,
		SuccessThreshold:   0.8,
		ThinkTimeMin:       500 * time.Millisecond,
		ThinkTimeMax:       2 * time.Second,
		FaultDelayMin:      time.Second,
		FaultDelayMax:      3 * time.Second,
		FaultCalls:         10,
		FaultMinElapsed:    time.Second,
		RecoveryTimeout:    30 * time.Second,
		RecoveryInterval:   5 * time.Second,
	}

	got := orchestratorConfig(cfg, []string{"CS101"}, true)
	require.NoError(t, got.Validate())

	assert.Equal(t, 20, got.Concurrent.Concurrency)
	assert.Equal(t, 20, got.Concurrent.Sessions)
	assert.Equal(t, 10, got.HighLoad.Concurrency)
	assert.Equal(t, 50, got.HighLoad.Sessions)
	assert.NotEqual(t, got.Concurrent.Seed, got.HighLoad.Seed)
	assert.True(t, got.Concurrent.Browse)
	assert.True(t, got.HighLoad.Fallback)
	assert.Equal(t, []string{"CS101"}, got.HighLoad.Courses)
	assert.Equal(t, 30*time.Second, got.RecoveryTimeout)
}
