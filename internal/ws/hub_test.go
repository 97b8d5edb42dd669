package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lingochat/internal/domain"
)

// slowConn records writes and flags overlapping ones, which the underlying
// websocket connection forbids.
type slowConn struct {
	inflight atomic.Int32
	overlap  atomic.Bool
	writes   atomic.Int32
}

func (c *slowConn) WriteJSON(v any) error {
	if c.inflight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	c.inflight.Add(-1)
	c.writes.Add(1)
	return nil
}

func (c *slowConn) Close() error { return nil }

func TestPushMessageReachesBothParticipants(t *testing.T) {
	hub := NewHub()
	sender := &slowConn{}
	receiver := &slowConn{}
	hub.Register(1, sender)
	hub.Register(2, receiver)

	hub.PushMessage(&domain.Message{ID: "m1", SenderID: 1, ReceiverID: 2})

	assert.Equal(t, int32(1), sender.writes.Load())
	assert.Equal(t, int32(1), receiver.writes.Load())
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	conn := &slowConn{}
	c := hub.Register(1, conn)
	hub.Unregister(1, c)

	hub.SendToUsers([]int64{1}, Event{Type: "newMessage"})

	assert.Equal(t, int32(0), conn.writes.Load())
}

func TestConcurrentPushesSerializePerConnection(t *testing.T) {
	hub := NewHub()
	conn := &slowConn{}
	hub.Register(1, conn)

	// Concurrent HTTP handlers all push to the same user.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.SendToUsers([]int64{1}, Event{Type: "newMessage"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), conn.writes.Load())
	assert.False(t, conn.overlap.Load(), "overlapping writes on one connection")
}
