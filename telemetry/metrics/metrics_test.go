package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsNamespaceWhenEmpty(t *testing.T) {
	m := New("")
	require.NotNil(t, m)
	m.ObserveReceipt("case_created")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReceiptsTotal.WithLabelValues("case_created")))
}

func TestObserveViolationIncrementsCounter(t *testing.T) {
	m := New("kerneltestviolations")
	m.ObserveViolation("critical")
	m.ObserveViolation("critical")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ViolationsTotal.WithLabelValues("critical")))
}

func TestObserveRestartLabelsByChildAndStrategy(t *testing.T) {
	m := New("kerneltestrestarts")
	m.ObserveRestart("eviction-sweeper", "one-for-one")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RestartsTotal.WithLabelValues("eviction-sweeper", "one-for-one")))
}
