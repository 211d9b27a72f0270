package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveTurn("mail", 20*time.Millisecond)
	r.ObserveTurn("mail", 30*time.Millisecond)
	r.ObserveTurn("registry", time.Millisecond)
	r.ObserveMailOp("list", "ok")
	r.ObserveGeneration("converse", "unavailable")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.turns.WithLabelValues("mail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.turns.WithLabelValues("registry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mailOps.WithLabelValues("list", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.genCalls.WithLabelValues("converse", "unavailable")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.turnLength))

	n, err := testutil.GatherAndCount(reg, "mailvoice_turns_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveTurn("mail", time.Second)
	r.ObserveMailOp("get", "ok")
	r.ObserveGeneration("probe", "error")
}
