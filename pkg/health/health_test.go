package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func decode(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("a", time.Second, passing)
		s.AddLivenessCheck("b", time.Second, passing)

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode(t, w).Status)
	})

	t.Run("failing past threshold", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("db", time.Second, failing("connection refused"))

		ctx := context.Background()
		for range failAfter {
			s.liveness[0].run(ctx)
		}

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode(t, w)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "connection refused", body.Checks["db"])
	})

	t.Run("failing below threshold stays healthy", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("flaky", time.Second, failing("temporary"))

		ctx := context.Background()
		for range failAfter - 1 {
			s.liveness[0].run(ctx)
		}

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("gate closed by default", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("db", time.Second, passing)

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decode(t, w).Checks, "_readiness")
	})

	t.Run("ready and passing", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("db", time.Second, passing)
		s.SetReady(true)

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one failing check reported", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("db", time.Second, passing)
		s.AddReadinessCheck("cache", time.Second, failing("cache down"))
		s.SetReady(true)

		ctx := context.Background()
		for range failAfter {
			s.readiness[1].run(ctx)
		}

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode(t, w)
		assert.Contains(t, body.Checks, "cache")
		assert.NotContains(t, body.Checks, "db")
	})
}

func TestIsReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, passing)

	assert.False(t, s.IsReady())
	s.SetReady(true)
	assert.True(t, s.IsReady())
	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	down := true
	s := New()
	s.AddLivenessCheck("flaky", time.Second, func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := s.liveness[0]

	ctx := context.Background()
	for range failAfter {
		p.run(ctx)
	}
	_, failed := p.failure()
	assert.True(t, failed)

	down = false
	p.run(ctx)
	_, failed = p.failure()
	assert.False(t, failed, "probe should recover after a success")
}

func TestStartStop(t *testing.T) {
	s := New()
	s.AddLivenessCheck("noop", time.Second, passing)

	s.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
