// Package resolver composes the gazetteer, the two external providers, the
// result cache, quality grading, and the geography gate into the service's
// resolution and fare contracts.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/geocache"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
)

// minQueryRunes rejects degenerate input before any resolution attempt.
const minQueryRunes = 3

// Gazetteer is the local place table consulted before any provider.
type Gazetteer interface {
	Lookup(text string) (domain.ResolvedLocation, bool)
}

// Config tunes provider arbitration.
type Config struct {
	Bounds domain.BoundingBox

	// HighConfidence is the primary provider's 0–10 confidence at or above
	// which its candidate is returned without querying the secondary
	// provider.
	HighConfidence float64

	// DegradationRatio decides arbitration when both providers answer:
	// the secondary candidate wins unless its normalized confidence is
	// below the primary's normalized confidence times this ratio.
	DegradationRatio float64
}

// Resolver is the geocode orchestrator: it arbitrates between the
// gazetteer and the two providers, and fronts everything with the shared
// result cache.
type Resolver struct {
	gazetteer Gazetteer
	primary   domain.Provider
	secondary domain.Provider
	reverse   domain.ReverseProvider
	cache     *geocache.Cache
	cfg       Config
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates the orchestrator. primary doubles as the reverse geocoder.
func New(gaz Gazetteer, primary domain.Provider, secondary domain.Provider, reverse domain.ReverseProvider, cache *geocache.Cache, cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		gazetteer: gaz,
		primary:   primary,
		secondary: secondary,
		reverse:   reverse,
		cache:     cache,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// ResolveText resolves free text to a location. Source order is a cost and
// latency trade-off: the gazetteer is free and authoritative, the primary
// provider may short-circuit on high confidence, and the secondary provider
// is a fallback and competitor rather than always queried.
func (r *Resolver) ResolveText(ctx context.Context, address string) (domain.ResolvedLocation, error) {
	loc, err := r.resolveText(ctx, address)
	r.metrics.ResolveRequests.WithLabelValues("forward", outcomeLabel(err)).Inc()
	return loc, err
}

func (r *Resolver) resolveText(ctx context.Context, address string) (domain.ResolvedLocation, error) {
	trimmed := strings.TrimSpace(address)
	if utf8.RuneCountInString(trimmed) < minQueryRunes {
		return domain.ResolvedLocation{}, domain.NewFailure(domain.FailureInvalidInput, "address text too short")
	}

	key := geocache.TextKey(trimmed)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.CacheLookups.WithLabelValues("forward", "hit").Inc()
		return cached, nil
	}
	r.metrics.CacheLookups.WithLabelValues("forward", "miss").Inc()

	if hit, ok := r.gazetteer.Lookup(trimmed); ok {
		r.metrics.GazetteerHits.Inc()
		r.cache.Put(key, hit)
		return hit, nil
	}

	primary, primaryFound, primaryErr := r.primary.Search(ctx, trimmed, r.cfg.Bounds)
	if primaryErr != nil {
		r.logger.Warn("primary provider failed", "provider", r.primary.Name(), "error", primaryErr)
	}
	if primaryFound && primary.RawConfidence >= r.cfg.HighConfidence {
		r.cache.Put(key, primary)
		return primary, nil
	}

	secondary, secondaryFound, secondaryErr := r.secondary.Search(ctx, trimmed, r.cfg.Bounds)
	if secondaryErr != nil {
		r.logger.Warn("secondary provider failed", "provider", r.secondary.Name(), "error", secondaryErr)
	}

	var chosen domain.ResolvedLocation
	switch {
	case primaryFound && secondaryFound:
		chosen = r.arbitrate(primary, secondary)
	case primaryFound:
		chosen = primary
	case secondaryFound:
		chosen = secondary
	default:
		if primaryErr != nil && secondaryErr != nil {
			return domain.ResolvedLocation{}, domain.WrapFailure(domain.FailureUnresolvable,
				"no geocoding source could resolve the input", errors.Join(primaryErr, secondaryErr))
		}
		return domain.ResolvedLocation{}, domain.NewFailure(domain.FailureUnresolvable,
			"no geocoding source could resolve the input")
	}

	r.cache.Put(key, chosen)
	return chosen, nil
}

// arbitrate prefers the secondary candidate unless its confidence, after
// normalizing both scales to 0–1, is meaningfully worse than the primary's.
func (r *Resolver) arbitrate(primary, secondary domain.ResolvedLocation) domain.ResolvedLocation {
	normPrimary := primary.RawConfidence / 10
	normSecondary := secondary.RawConfidence
	if normSecondary < normPrimary*r.cfg.DegradationRatio {
		return primary
	}
	return secondary
}

// ResolveCoordinate reverse-resolves a coordinate to address text through
// the primary provider, behind the shared cache.
func (r *Resolver) ResolveCoordinate(ctx context.Context, lat, lon float64) (domain.ResolvedLocation, error) {
	loc, err := r.resolveCoordinate(ctx, lat, lon)
	r.metrics.ResolveRequests.WithLabelValues("reverse", outcomeLabel(err)).Inc()
	return loc, err
}

func (r *Resolver) resolveCoordinate(ctx context.Context, lat, lon float64) (domain.ResolvedLocation, error) {
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		return domain.ResolvedLocation{}, err
	}

	key := geocache.CoordKey(coord.Lat, coord.Lon)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.CacheLookups.WithLabelValues("reverse", "hit").Inc()
		return cached, nil
	}
	r.metrics.CacheLookups.WithLabelValues("reverse", "miss").Inc()

	loc, found, err := r.reverse.ReverseLookup(ctx, coord)
	if err != nil {
		return domain.ResolvedLocation{}, err
	}
	if !found {
		return domain.ResolvedLocation{}, domain.NewFailure(domain.FailureAddressNotFound,
			"no address found for coordinate "+coord.String())
	}

	r.cache.Put(key, loc)
	return loc, nil
}

// ReverseComponents supplies address components for a coordinate, for the
// geography gate's municipality fallback. Cached like any reverse lookup.
func (r *Resolver) ReverseComponents(ctx context.Context, c domain.Coordinate) (domain.AddressComponents, error) {
	loc, err := r.ResolveCoordinate(ctx, c.Lat, c.Lon)
	if err != nil {
		return nil, err
	}
	return loc.Components, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := domain.KindOf(err); kind != domain.FailureUnknown {
		return kind.Code()
	}
	return "error"
}
