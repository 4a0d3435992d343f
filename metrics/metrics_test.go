package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Without_Registry_Is_Usable(t *testing.T) {
	m := New(nil)
	m.CacheHits.Inc()
	m.LockGrants.WithLabelValues("shared").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LockGrants.WithLabelValues("shared")))
}

func TestSnapshot_Returns_Registered_Values(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Evictions.Add(3)
	m.ResidentPages.Set(2)
	m.LockGrants.WithLabelValues("exclusive").Inc()

	samples, err := Snapshot(reg)
	require.NoError(t, err)

	values := map[string]float64{}
	for _, s := range samples {
		values[s.Name] = s.Value
	}
	assert.Equal(t, float64(3), values["heapdb_buffer_evictions_total"])
	assert.Equal(t, float64(2), values["heapdb_buffer_resident_pages"])
	assert.Equal(t, float64(1), values["heapdb_lock_grants_total{mode=exclusive}"])
}

func TestNew_Registering_Twice_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
