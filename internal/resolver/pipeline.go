package resolver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/fare"
	"github.com/couchcryptid/ride-geo-service/internal/geofence"
	"github.com/couchcryptid/ride-geo-service/internal/grading"
	"github.com/couchcryptid/ride-geo-service/internal/linkparse"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
)

// EventPublisher emits dispatch audit events. Publishing is best-effort;
// a publish failure never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.DispatchEvent) error
}

// Assessment pairs a resolved location with its quality grade.
type Assessment struct {
	Location domain.ResolvedLocation  `json:"location"`
	Quality  domain.QualityAssessment `json:"quality"`
}

// Pipeline is the full decision core exposed to the route layer: raw rider
// input in, validated assessment or fare quote out.
type Pipeline struct {
	resolver *Resolver
	grader   *grading.Grader
	gate     *geofence.Gate
	schedule fare.Schedule
	events   EventPublisher // nil when event publishing is disabled
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewPipeline wires the pipeline. events may be nil.
func NewPipeline(r *Resolver, grader *grading.Grader, gate *geofence.Gate, schedule fare.Schedule, events EventPublisher, metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		resolver: r,
		grader:   grader,
		gate:     gate,
		schedule: schedule,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// Resolve handles raw rider input: a shared map link, a bare "lat,lon"
// pair, or free address text. The result has passed the geography gate.
func (p *Pipeline) Resolve(ctx context.Context, input string) (Assessment, error) {
	raw := strings.TrimSpace(input)

	if isMapLink(raw) {
		intent := linkparse.Parse(raw)
		if intent.Empty() {
			return Assessment{}, domain.NewFailure(domain.FailureInvalidInput, "unrecognized map link")
		}
		if intent.Coordinate != nil {
			return p.ResolveCoordinate(ctx, intent.Coordinate.Lat, intent.Coordinate.Lon)
		}
		return p.resolveText(ctx, intent.Query)
	}

	if c, ok := linkparse.CoordinateText(raw); ok {
		return p.ResolveCoordinate(ctx, c.Lat, c.Lon)
	}
	return p.resolveText(ctx, raw)
}

// ResolveText resolves address text through the orchestrator, grades it,
// and enforces the geography gate.
func (p *Pipeline) ResolveText(ctx context.Context, address string) (Assessment, error) {
	return p.resolveText(ctx, address)
}

func (p *Pipeline) resolveText(ctx context.Context, address string) (Assessment, error) {
	loc, err := p.resolver.ResolveText(ctx, address)
	if err != nil {
		return Assessment{}, err
	}
	return p.assess(ctx, address, address, loc)
}

// ResolveCoordinate reverse-resolves a coordinate, grades it, and enforces
// the geography gate.
func (p *Pipeline) ResolveCoordinate(ctx context.Context, lat, lon float64) (Assessment, error) {
	loc, err := p.resolver.ResolveCoordinate(ctx, lat, lon)
	if err != nil {
		return Assessment{}, err
	}
	// A coordinate origin carries no address text, so the grader's
	// input-based demotions do not apply.
	return p.assess(ctx, loc.Coordinate.String(), "", loc)
}

func (p *Pipeline) assess(ctx context.Context, input, gradeInput string, loc domain.ResolvedLocation) (Assessment, error) {
	quality := p.grader.Grade(loc.Provenance, loc.RawConfidence, loc.FormattedAddress, gradeInput)

	if err := p.gate.Check(ctx, loc); err != nil {
		p.metrics.GateChecks.WithLabelValues(domain.KindOf(err).Code()).Inc()
		return Assessment{}, err
	}
	p.metrics.GateChecks.WithLabelValues("accepted").Inc()

	assessment := Assessment{Location: loc, Quality: quality}
	p.publish(ctx, domain.NewResolutionEvent(input, loc, quality))
	return assessment, nil
}

// Quote validates both endpoints against the geography gate and computes
// the tiered fare for the great-circle distance between them. The
// destination address is attached best-effort from the reverse geocoder.
func (p *Pipeline) Quote(ctx context.Context, origin, destination domain.Coordinate) (domain.FareQuote, error) {
	for _, c := range []domain.Coordinate{origin, destination} {
		if !c.Valid() {
			return domain.FareQuote{}, domain.NewFailure(domain.FailureInvalidInput, "invalid coordinate "+c.String())
		}
		if err := p.gate.Check(ctx, domain.ResolvedLocation{Coordinate: c}); err != nil {
			p.metrics.GateChecks.WithLabelValues(domain.KindOf(err).Code()).Inc()
			return domain.FareQuote{}, err
		}
		p.metrics.GateChecks.WithLabelValues("accepted").Inc()
	}

	if err := p.schedule.Validate(); err != nil {
		return domain.FareQuote{}, domain.WrapFailure(domain.FailureFareCalculation, "invalid fare schedule", err)
	}

	distance := math.Round(domain.HaversineKm(origin, destination)*100) / 100

	quote := domain.FareQuote{
		Origin:      origin,
		Destination: destination,
		DistanceKm:  distance,
		Amount:      p.schedule.Amount(distance),
	}
	if loc, err := p.resolver.ResolveCoordinate(ctx, destination.Lat, destination.Lon); err == nil {
		quote.DestinationAddress = loc.FormattedAddress
	}

	p.metrics.FareQuotes.Inc()
	p.metrics.QuoteDistanceKm.Observe(distance)
	p.publish(ctx, domain.NewQuoteEvent(quote))
	return quote, nil
}

// CheckReadiness reports whether the pipeline can serve traffic.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.resolver == nil || p.gate == nil {
		return errors.New("pipeline not wired")
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, ev domain.DispatchEvent) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, ev); err != nil {
		p.logger.Warn("dispatch event publish failed", "kind", string(ev.Kind), "error", err)
	}
}

// isMapLink reports whether the raw input is a URL rather than address text.
func isMapLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
