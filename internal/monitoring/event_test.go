package monitoring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	ev := NewEvent(EventAssemblyNotFound, "estimate.add_assembly", "Assembly ASM-X not found.")
	assert.Equal(t, EventAssemblyNotFound, ev.Kind)
	assert.Equal(t, "estimate.add_assembly", ev.Context)
	assert.Equal(t, "Assembly ASM-X not found.", ev.Message)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify(NewEvent(EventPriceUpdate, "pricing", "tick"))
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 20)
}

func TestMulti_FansOut(t *testing.T) {
	t.Parallel()

	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b, Nop{}, LogNotifier{}}
	m.Notify(NewEvent(EventBidLocked, "estimate", "locked"))

	assert.Equal(t, []EventKind{EventBidLocked}, a.Kinds())
	assert.Equal(t, []EventKind{EventBidLocked}, b.Kinds())
}
