package external

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external/cache"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/config"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
)

// Source labels used for cache keys and metrics.
const (
	SourceEPC      = "epc"
	SourceFlood    = "flood"
	SourcePostcode = "postcode"
)

// Clients bundles the three upstream sources.
type Clients struct {
	EPC      EPCClient
	Flood    FloodClient
	Postcode PostcodeClient
}

// Service wraps the clients with caching and a bounded fetch timeout. Cache
// faults degrade to a plain fetch; they never fail the request.
type Service struct {
	clients Clients
	cache   cache.Cache
	cfg     config.ExternalConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(clients Clients, c cache.Cache, cfg config.ExternalConfig, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{clients: clients, cache: c, cfg: cfg, metrics: m, logger: logger}
}

// EPC returns the certificate for a UPRN, cached by the UPRN alone.
func (s *Service) EPC(ctx context.Context, uprn string) (EPCRecord, error) {
	var record EPCRecord
	err := s.cached(ctx, SourceEPC, uprn, s.cfg.EPCTTL, &record, func(ctx context.Context) (any, error) {
		return s.clients.EPC.ByUPRN(ctx, uprn)
	})
	return record, err
}

// Flood returns the flood-risk summary for a postcode.
func (s *Service) Flood(ctx context.Context, postcode string) (FloodRisk, error) {
	var risk FloodRisk
	err := s.cached(ctx, SourceFlood, postcode, s.cfg.FloodTTL, &risk, func(ctx context.Context) (any, error) {
		return s.clients.Flood.ByPostcode(ctx, postcode)
	})
	return risk, err
}

// Postcode returns administrative geography for a postcode.
func (s *Service) Postcode(ctx context.Context, postcode string) (PostcodeInfo, error) {
	var info PostcodeInfo
	err := s.cached(ctx, SourcePostcode, postcode, s.cfg.PostcodeTTL, &info, func(ctx context.Context) (any, error) {
		return s.clients.Postcode.Lookup(ctx, postcode)
	})
	return info, err
}

// cached resolves source+query through the cache, falling back to the client
// under the configured fetch timeout. dest must be a pointer to the source's
// record type.
func (s *Service) cached(ctx context.Context, source, query string, ttl time.Duration, dest any, fetch func(ctx context.Context) (any, error)) error {
	key := source + ":" + query

	if raw, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "external cache read failed", "source", source, "error", err)
	} else if hit {
		if err := json.Unmarshal(raw, dest); err == nil {
			s.metrics.IncrementCacheHit(source)
			return nil
		}
		// Corrupt entry: fall through and refetch.
		s.logger.WarnContext(ctx, "external cache entry corrupt", "source", source, "key", key)
	}

	timeout := s.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := fetch(fetchCtx)
	s.metrics.ObserveExternalFetch(source, time.Since(start))
	if err != nil {
		s.metrics.IncrementExternalFailure(source)
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.WarnContext(ctx, "external cache write failed", "source", source, "error", err)
	}
	return nil
}
