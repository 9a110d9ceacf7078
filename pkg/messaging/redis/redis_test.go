package redis

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenRedis accepts connections and drops them immediately, so every
// receive attempt fails fast. Returns the accept counter.
func brokenRedis(t *testing.T) (addr string, dials *int64) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var count int64
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt64(&count, 1)
			conn.Close()
		}
	}()
	return ln.Addr().String(), &count
}

func testBroker(addr string) *RedisBroker {
	nop := zerolog.Nop()
	return &RedisBroker{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			MaxRetries:   -1,
			DialTimeout:  100 * time.Millisecond,
			ReadTimeout:  100 * time.Millisecond,
			WriteTimeout: 100 * time.Millisecond,
			PoolSize:     1,
		}),
		logger: &nop,
	}
}

func TestSubscribeBacksOffOnReceiveFailure(t *testing.T) {
	addr, dials := brokenRedis(t)
	b := testBroker(addr)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := b.Subscribe(ctx, "notifications")
	require.NoError(t, err)

	// Every receive fails instantly. With the retry delay in place the
	// loop should only manage a couple of dials in this window.
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt64(dials), int64(5), "subscribe loop is spinning without backoff")

	cancel()
	select {
	case _, open := <-msgs:
		assert.False(t, open, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after context cancel")
	}
}
