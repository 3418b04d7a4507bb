package external

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external/cache"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/config"
)

type countingEPCClient struct {
	inner EPCClient
	calls int
}

func (c *countingEPCClient) ByUPRN(ctx context.Context, uprn string) (EPCRecord, error) {
	c.calls++
	return c.inner.ByUPRN(ctx, uprn)
}

func newTestService(clients Clients) (*Service, *cache.Memory) {
	c := cache.NewMemory()
	cfg := config.ExternalConfig{
		FetchTimeout: 500 * time.Millisecond,
		EPCTTL:       time.Hour,
		FloodTTL:     time.Hour,
		PostcodeTTL:  time.Hour,
	}
	return NewService(clients, c, cfg, nil, slog.New(slog.DiscardHandler)), c
}

func TestServiceEPC(t *testing.T) {
	ctx := context.Background()

	t.Run("second fetch is served from cache", func(t *testing.T) {
		client := &countingEPCClient{inner: MockEPCClient{}}
		svc, _ := newTestService(Clients{EPC: client})

		first, err := svc.EPC(ctx, "100023336956")
		require.NoError(t, err)
		second, err := svc.EPC(ctx, "100023336956")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, client.calls, "cache hit must skip the client")
	})

	t.Run("different queries miss independently", func(t *testing.T) {
		client := &countingEPCClient{inner: MockEPCClient{}}
		svc, _ := newTestService(Clients{EPC: client})

		_, err := svc.EPC(ctx, "100023336956")
		require.NoError(t, err)
		_, err = svc.EPC(ctx, "200000000001")
		require.NoError(t, err)
		assert.Equal(t, 2, client.calls)
	})

	t.Run("client error surfaces and is not cached", func(t *testing.T) {
		boom := errors.New("register unavailable")
		client := &countingEPCClient{inner: MockEPCClient{Err: boom}}
		svc, _ := newTestService(Clients{EPC: client})

		_, err := svc.EPC(ctx, "100023336956")
		assert.ErrorIs(t, err, boom)

		_, err = svc.EPC(ctx, "100023336956")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2, client.calls, "failures must not populate the cache")
	})

	t.Run("slow source hits the fetch timeout", func(t *testing.T) {
		client := &countingEPCClient{inner: MockEPCClient{Latency: 5 * time.Second}}
		svc, _ := newTestService(Clients{EPC: client})

		start := time.Now()
		_, err := svc.EPC(ctx, "100023336956")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestServiceFloodAndPostcode(t *testing.T) {
	ctx := context.Background()
	svc, memCache := newTestService(Clients{
		Flood:    MockFloodClient{},
		Postcode: MockPostcodeClient{},
	})

	risk, err := svc.Flood(ctx, "BS1 4DJ")
	require.NoError(t, err)
	assert.Equal(t, "BS1 4DJ", risk.Postcode)
	assert.NotEmpty(t, risk.RiversAndSea)

	info, err := svc.Postcode(ctx, "BS1 4DJ")
	require.NoError(t, err)
	assert.Equal(t, "BS1 4DJ", info.Postcode)
	assert.NotZero(t, info.Latitude)

	// Keys are source-scoped: the flood entry for a postcode does not
	// shadow the geography entry for the same postcode.
	_, hit, err := memCache.Get(ctx, "flood:BS1 4DJ")
	require.NoError(t, err)
	assert.True(t, hit)
	_, hit, err = memCache.Get(ctx, "postcode:BS1 4DJ")
	require.NoError(t, err)
	assert.True(t, hit)
}
