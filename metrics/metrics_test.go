package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	r := New(false)

	r.ObserveRun("steel", time.Now(), nil)
	r.ObserveRun("steel", time.Now(), nil)
	r.ObserveRun("steel", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("steel", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("steel", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestSetHoldout(t *testing.T) {
	r := New(false)

	r.SetHoldout("glass", nil)
	assert.Equal(t, 0, testutil.CollectAndCount(r.holdoutMAPE))

	r.SetHoldout("glass", &forecast.Scores{MAPE: 0.05, R2: 0.9})
	assert.Equal(t, 0.05, testutil.ToFloat64(r.holdoutMAPE.WithLabelValues("glass")))
	assert.Equal(t, 0.9, testutil.ToFloat64(r.holdoutR2.WithLabelValues("glass")))
}

func TestCacheAndOutliers(t *testing.T) {
	r := New(false)
	r.CacheHit()
	r.CacheMiss()
	r.CacheMiss()
	r.AddOutliers("lumber", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.outliersTotal.WithLabelValues("lumber")))
}

func TestHandler(t *testing.T) {
	r := New(true)
	r.ObserveRun("copper", time.Now(), nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `costcast_runs_total{series="copper",status="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestWriteTextfile(t *testing.T) {
	r := New(false)
	r.SetHoldout("gypsum", &forecast.Scores{MAPE: 0.25, R2: 0.5})

	path := filepath.Join(t.TempDir(), "costcast.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `costcast_holdout_mape{series="gypsum"} 0.25`))

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "costcast.prom")))
}
