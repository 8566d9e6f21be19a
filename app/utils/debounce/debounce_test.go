package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRapidTriggersCoalesce(t *testing.T) {
	d := New(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int64
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestStopCancelsPending(t *testing.T) {
	d := New(30 * time.Millisecond)

	var calls atomic.Int64
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}

func TestLaterTriggerReplacesEarlier(t *testing.T) {
	d := New(40 * time.Millisecond)
	defer d.Stop()

	var got atomic.Value
	d.Trigger(func() { got.Store("first") })
	d.Trigger(func() { got.Store("second") })

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, "second", got.Load())
}
