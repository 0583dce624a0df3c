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

func TestHealth_ReadyGate(t *testing.T) {
	h := New()

	assert.False(t, h.IsReady(), "fresh instance must not be ready")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestHealth_FailureThreshold(t *testing.T) {
	p := newProbe("flaky", time.Second, func(context.Context) error {
		return errors.New("down")
	})

	// Below the threshold the probe stays healthy.
	p.run(context.Background())
	p.run(context.Background())
	ok, _ := p.state()
	assert.True(t, ok)

	p.run(context.Background())
	ok, err := p.state()
	assert.False(t, ok)
	assert.EqualError(t, err, "down")
}

func TestHealth_RecoversAfterSuccess(t *testing.T) {
	fail := true
	p := newProbe("db", time.Second, func(context.Context) error {
		if fail {
			return errors.New("unreachable")
		}
		return nil
	})

	for range defaultFailureThreshold {
		p.run(context.Background())
	}
	ok, _ := p.state()
	require.False(t, ok)

	fail = false
	p.run(context.Background())
	ok, _ = p.state()
	assert.True(t, ok)
}

func TestHealth_ReadyEndpoint(t *testing.T) {
	h := New()
	h.SetReady(true)

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	h.SetReady(false)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks, "_readiness")
}

func TestHealth_LiveEndpointReportsFailures(t *testing.T) {
	h := New()
	h.AddLivenessCheck("always-down", time.Second, func(context.Context) error {
		return errors.New("broken")
	})

	// Drive the probe past its failure threshold directly.
	for range defaultFailureThreshold {
		h.liveness[0].run(context.Background())
	}

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "broken", body.Checks["always-down"])
}
