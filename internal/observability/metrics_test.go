package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubeagle/kubeagle/internal/cache"
	"github.com/kubeagle/kubeagle/internal/cluster"
	"github.com/kubeagle/kubeagle/internal/limiter"
)

// Compile-time checks that Metrics satisfies the recorder seams it is
// wired into.
var (
	_ cache.Recorder        = (*Metrics)(nil)
	_ cluster.FetchObserver = (*Metrics)(nil)
	_ limiter.WaitRecorder  = (*Metrics)(nil)
)

func TestMetricsRecorderCounts(t *testing.T) {
	m := NewMetrics()

	m.Hit("shared")
	m.Hit("shared")
	m.Hit("session")
	m.Miss()
	m.Eviction()
	m.Coalesced()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("shared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("session")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEvictionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoalescedTotal))
}

func TestObserveProcessOutcomes(t *testing.T) {
	m := NewMetrics()

	m.ObserveProcess("kubectl", 120*time.Millisecond, nil)
	m.ObserveProcess("kubectl", 80*time.Millisecond, errors.New("exit 1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessInvocationsTotal.WithLabelValues("kubectl", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessInvocationsTotal.WithLabelValues("kubectl", "error")))
}

func TestObserveGateWaitRecordsSample(t *testing.T) {
	m := NewMetrics()
	m.ObserveGateWait(25 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.GateWaitDuration))
}

func TestServerServesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveFetch("nodes", "Success")

	s := NewServer(0, m, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "kubeagle_fetch_outcomes_total")
}
