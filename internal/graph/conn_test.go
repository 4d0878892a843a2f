package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoner/almoner/internal/config"
	apperrors "github.com/almoner/almoner/internal/errors"
)

func TestConn_StartsUnconnected(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})

	assert.Equal(t, StateUnconnected, c.State())
	assert.Equal(t, "almoner", c.GraphName())
}

func TestConn_QueryBeforeConnect(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})

	_, err := c.Query(context.Background(), "MATCH (n) RETURN n", nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConnection))
	assert.Contains(t, err.Error(), "not connected")
}

func TestConn_MutateBeforeConnect(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})

	_, err := c.Mutate(context.Background(), "CREATE (n:Funder {id: $p0})", map[string]any{"p0": "f1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConnection))
}

func TestConn_DisconnectWithoutConnect(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, StateUnconnected, c.State())
}

func TestConn_ConnectBadURL(t *testing.T) {
	c := New(config.GraphConfig{URL: "://not-a-url", Name: "almoner"})

	err := c.Connect(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
	assert.Equal(t, StateUnconnected, c.State(), "failed dial must leave the conn unconnected")
}

func TestConn_ConcurrentConnectDialsOnce(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})
	var dials atomic.Int32
	c.establish = func(context.Context) error {
		dials.Add(1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Connect(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load(), "concurrent callers share one dial attempt")
	assert.Equal(t, StateConnected, c.State())

	// Already connected: another Connect is a no-op.
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, int32(1), dials.Load())
}

func TestConn_FailedDialIsRetriable(t *testing.T) {
	c := New(config.GraphConfig{Host: "localhost", Port: 6379, Name: "almoner"})
	var dials atomic.Int32
	c.establish = func(context.Context) error {
		if dials.Add(1) == 1 {
			return apperrors.Wrap(errors.New("connection refused"),
				apperrors.KindConnection, "failed to connect")
		}
		return nil
	}

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateUnconnected, c.State())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, int32(2), dials.Load())
}

func TestRedisOptions_URLPrecedence(t *testing.T) {
	c := New(config.GraphConfig{
		URL:      "redis://:secret@falkordb.internal:6380/0",
		Host:     "ignored",
		Port:     1234,
		Password: "ignored",
		Name:     "almoner",
	})

	opts, err := c.redisOptions()

	require.NoError(t, err)
	assert.Equal(t, "falkordb.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
}

func TestRedisOptions_HostPort(t *testing.T) {
	c := New(config.GraphConfig{Host: "10.0.0.5", Port: 6379, Password: "pw", Name: "almoner"})

	opts, err := c.redisOptions()

	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
}

func TestQueryOptions_DeadlineBecomesTimeout(t *testing.T) {
	assert.Nil(t, queryOptions(context.Background()), "no deadline means store default")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	opts := queryOptions(ctx)
	require.NotNil(t, opts)
}

func TestNormalizeParams(t *testing.T) {
	stamp := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	out := normalizeParams(map[string]any{
		"areas": []string{"education", "housing"},
		"at":    stamp,
		"id":    "f1",
	})

	assert.Equal(t, []any{"education", "housing"}, out["areas"])
	assert.Equal(t, "2026-03-15T12:00:00Z", out["at"])
	assert.Equal(t, "f1", out["id"])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unconnected", StateUnconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
