package observability_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/observability"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, hooks domain.LifecycleHooks) *storyline.Engine {
	t.Helper()
	steps := make([]domain.Step, 2)
	for i := range steps {
		steps[i] = domain.Step{ID: i + 1, Text: fmt.Sprintf("Step %d", i+1), OptionA: "a", OptionB: "b"}
	}
	st, err := story.FromSteps(steps)
	require.NoError(t, err)
	eng, err := storyline.New(st, storyline.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	return eng
}

func TestMetrics_CountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	eng := newEngine(t, metrics.Hooks())
	ctx := context.Background()

	_, _ = eng.Start(ctx, "u1")
	_, _ = eng.Submit(ctx, "u1", 0, domain.LabelA)
	_, _ = eng.Submit(ctx, "u1", 0, domain.LabelA)
	_, _ = eng.Submit(ctx, "u1", 1, domain.LabelB)
	_, _ = eng.Submit(ctx, "u1", 1, "X")
	_, _ = eng.Reset(ctx, "u1")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsReset))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChoicesAccepted.WithLabelValues("A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChoicesAccepted.WithLabelValues("B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChoicesStale))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PayloadsInvalid))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JourneysCompleted))
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	metrics.SessionsStarted.Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "storyline_sessions_started_total 1")
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnStart: func(ctx context.Context, e *domain.SessionEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnStart:  func(ctx context.Context, e *domain.SessionEvent) { calls = append(calls, "b") },
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) { calls = append(calls, "b-choice") },
	}

	hooks := observability.Chain(a, domain.LifecycleHooks{}, b)
	require.NotNil(t, hooks.OnStart)
	assert.Nil(t, hooks.OnReset)

	hooks.OnStart(context.Background(), &domain.SessionEvent{})
	hooks.OnChoice(context.Background(), &domain.ChoiceEvent{})
	assert.Equal(t, []string{"a", "b", "b-choice"}, calls)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := newEngine(t, observability.LoggingHooks(logger))
	ctx := context.Background()

	_, _ = eng.Start(ctx, "u1")
	_, _ = eng.Submit(ctx, "u1", 0, domain.LabelA)
	_, _ = eng.Submit(ctx, "u1", 0, domain.LabelA)
	_, _ = eng.Submit(ctx, "u1", 1, domain.LabelB)

	out := buf.String()
	assert.Contains(t, out, "msg=session_start session_id=u1")
	assert.Contains(t, out, "msg=choice_accepted session_id=u1 step=0 label=A cursor=1")
	assert.Contains(t, out, "msg=journey_complete session_id=u1 choices=2")
	assert.NotContains(t, out, "choice_stale", "stale presses are debug only")
}

func TestLoggingHooks_Discard(t *testing.T) {
	hooks := observability.LoggingHooks(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotPanics(t, func() {
		hooks.OnInvalid(context.Background(), &domain.ChoiceEvent{Err: "bad"})
	})
}
