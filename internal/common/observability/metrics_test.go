package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopIsSafe(t *testing.T) {
	o := NewNoop()
	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "discover", "success", time.Second)
		o.RecordTransition(context.Background(), "INTENT", "DISCOVERY")
		o.Shutdown()
	})

	var nilObs *Observability
	assert.NotPanics(t, func() {
		nilObs.RecordRun(context.Background(), "select", "error", 0)
	})
}

func TestNewRecords(t *testing.T) {
	o := New("gem-finder-test")
	defer o.Shutdown()

	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "discover", "zero_gems", 120*time.Millisecond)
		o.RecordTransition(context.Background(), "FILTER", "RECOMMEND")
	})
}
