package resolver

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/fare"
	"github.com/couchcryptid/ride-geo-service/internal/geocache"
	"github.com/couchcryptid/ride-geo-service/internal/geofence"
	"github.com/couchcryptid/ride-geo-service/internal/grading"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
)

type capturingPublisher struct {
	events []domain.DispatchEvent
}

func (p *capturingPublisher) Publish(_ context.Context, ev domain.DispatchEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func tepicResult(confidence float64) domain.ResolvedLocation {
	return domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: 21.5041, Lon: -104.8946},
		FormattedAddress: "Av. México 100, Tepic, Nayarit, México",
		Provenance:       domain.ProvenanceOpenCage,
		RawConfidence:    confidence,
		Components:       domain.AddressComponents{"city": "Tepic", "road": "Av. México", "house_number": "100"},
	}
}

func newTestPipeline(primary domain.Provider, reverse domain.ReverseProvider, events EventPublisher) *Pipeline {
	metrics := observability.NewMetricsForTesting()
	logger := slog.Default()

	r := New(
		&fakeGazetteer{},
		primary,
		&fakeProvider{name: "mapbox"},
		reverse,
		geocache.New(64, time.Hour),
		Config{Bounds: testBounds, HighConfidence: 8, DegradationRatio: 0.85},
		metrics,
		logger,
	)

	zones := []domain.ServiceZone{
		{Name: "Aeropuerto", Center: domain.Coordinate{Lat: 21.4195, Lon: -104.8427}, RadiusKm: 2},
	}
	gate := geofence.New(testBounds, []string{"tepic", "xalisco"}, zones, r.ReverseComponents, logger)
	grader := grading.NewGrader([]string{"tepic", "xalisco"})

	return NewPipeline(r, grader, gate, fare.DefaultSchedule(), events, metrics, logger)
}

func TestPipelineResolve_AddressText(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: tepicResult(9), found: true}
	events := &capturingPublisher{}
	p := newTestPipeline(primary, &fakeReverse{}, events)

	got, err := p.Resolve(context.Background(), "Av. México 100, Tepic")

	require.NoError(t, err)
	assert.Equal(t, domain.TierExcellent, got.Quality.Tier)
	assert.Equal(t, domain.ProvenanceOpenCage, got.Location.Provenance)
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventLocationResolved, events.events[0].Kind)
}

func TestPipelineResolve_MapLinkWithCoordinate(t *testing.T) {
	reverse := &fakeReverse{result: tepicResult(9), found: true}
	p := newTestPipeline(&fakeProvider{name: "opencage"}, reverse, nil)

	got, err := p.Resolve(context.Background(), "https://www.google.com/maps/@21.5041,-104.8946,17z")

	require.NoError(t, err)
	assert.Equal(t, 1, reverse.calls)
	assert.InDelta(t, 21.5041, got.Location.Coordinate.Lat, 1e-9)
}

func TestPipelineResolve_MapLinkWithQuery(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: tepicResult(9), found: true}
	p := newTestPipeline(primary, &fakeReverse{}, nil)

	_, err := p.Resolve(context.Background(), "https://www.google.com/maps/search/?api=1&query=forum+tepic")

	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
}

func TestPipelineResolve_UnrecognizedMapLink(t *testing.T) {
	p := newTestPipeline(&fakeProvider{name: "opencage"}, &fakeReverse{}, nil)

	_, err := p.Resolve(context.Background(), "https://example.com/nothing-here")

	assert.True(t, domain.IsKind(err, domain.FailureInvalidInput))
}

func TestPipelineResolve_BareCoordinatePair(t *testing.T) {
	reverse := &fakeReverse{result: tepicResult(9), found: true}
	p := newTestPipeline(&fakeProvider{name: "opencage"}, reverse, nil)

	_, err := p.Resolve(context.Background(), "21.5041, -104.8946")

	require.NoError(t, err)
	assert.Equal(t, 1, reverse.calls)
}

func TestPipelineResolve_OutOfBoundsRejected(t *testing.T) {
	outside := domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: 20.6597, Lon: -103.3496},
		FormattedAddress: "Guadalajara, Jalisco, México",
		Provenance:       domain.ProvenanceOpenCage,
		RawConfidence:    9,
		Components:       domain.AddressComponents{"city": "Guadalajara"},
	}
	primary := &fakeProvider{name: "opencage", result: outside, found: true}
	events := &capturingPublisher{}
	p := newTestPipeline(primary, &fakeReverse{}, events)

	_, err := p.Resolve(context.Background(), "centro guadalajara")

	assert.True(t, domain.IsKind(err, domain.FailureOutOfBounds))
	assert.Empty(t, events.events)
}

func TestPipelineResolve_DisallowedMunicipalityRejected(t *testing.T) {
	// In bounds but neither an allowed municipality nor a service zone.
	stranger := domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: 21.64, Lon: -104.76},
		FormattedAddress: "Camichín de Jauja, Nayarit, México",
		Provenance:       domain.ProvenanceOpenCage,
		RawConfidence:    9,
		Components:       domain.AddressComponents{"town": "Camichín de Jauja"},
	}
	primary := &fakeProvider{name: "opencage", result: stranger, found: true}
	p := newTestPipeline(primary, &fakeReverse{}, nil)

	_, err := p.Resolve(context.Background(), "camichin de jauja")

	assert.True(t, domain.IsKind(err, domain.FailureOutOfServiceArea))
}

func TestPipelineResolve_ServiceZoneOverridesMunicipality(t *testing.T) {
	airport := domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: 21.4195, Lon: -104.8427},
		FormattedAddress: "Aeropuerto Amado Nervo, Nayarit, México",
		Provenance:       domain.ProvenanceOpenCage,
		RawConfidence:    9,
		Components:       domain.AddressComponents{"town": "Pantanal"},
	}
	primary := &fakeProvider{name: "opencage", result: airport, found: true}
	p := newTestPipeline(primary, &fakeReverse{}, nil)

	_, err := p.Resolve(context.Background(), "aeropuerto amado nervo")

	assert.NoError(t, err)
}

func TestPipelineQuote_ComputesTieredFare(t *testing.T) {
	reverse := &fakeReverse{result: tepicResult(9), found: true}
	events := &capturingPublisher{}
	p := newTestPipeline(&fakeProvider{name: "opencage"}, reverse, events)

	origin := domain.Coordinate{Lat: 21.5041, Lon: -104.8946}
	// Roughly 8 km east of the origin at this latitude.
	destination := domain.Coordinate{Lat: 21.5041, Lon: -104.8946 + 8.0/(111.0*0.9306)}

	quote, err := p.Quote(context.Background(), origin, destination)

	require.NoError(t, err)
	assert.InDelta(t, 8.0, quote.DistanceKm, 0.1)
	// Base 50 to 5 km, then 10/km: about 80 at 8 km.
	assert.InDelta(t, 80, float64(quote.Amount), 2)
	assert.Equal(t, "Av. México 100, Tepic, Nayarit, México", quote.DestinationAddress)
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventFareQuoted, events.events[0].Kind)
}

func TestPipelineQuote_ShortTripChargesBase(t *testing.T) {
	reverse := &fakeReverse{result: tepicResult(9), found: true}
	p := newTestPipeline(&fakeProvider{name: "opencage"}, reverse, nil)

	origin := domain.Coordinate{Lat: 21.5041, Lon: -104.8946}
	destination := domain.Coordinate{Lat: 21.5100, Lon: -104.8900}

	quote, err := p.Quote(context.Background(), origin, destination)

	require.NoError(t, err)
	assert.Equal(t, 50, quote.Amount)
}

func TestPipelineQuote_RejectsOutOfBoundsEndpoint(t *testing.T) {
	reverse := &fakeReverse{result: tepicResult(9), found: true}
	p := newTestPipeline(&fakeProvider{name: "opencage"}, reverse, nil)

	origin := domain.Coordinate{Lat: 21.5041, Lon: -104.8946}
	guadalajara := domain.Coordinate{Lat: 20.6597, Lon: -103.3496}

	_, err := p.Quote(context.Background(), origin, guadalajara)

	assert.True(t, domain.IsKind(err, domain.FailureOutOfBounds))
}

func TestPipelineQuote_RejectsInvalidCoordinate(t *testing.T) {
	p := newTestPipeline(&fakeProvider{name: "opencage"}, &fakeReverse{}, nil)

	_, err := p.Quote(context.Background(), domain.Coordinate{Lat: 999}, domain.Coordinate{Lat: 21.5, Lon: -104.89})

	assert.True(t, domain.IsKind(err, domain.FailureInvalidInput))
}

func TestPipelineQuote_DestinationAddressBestEffort(t *testing.T) {
	// Reverse lookup finds nothing; the quote still succeeds without an
	// address, because the destination coordinate is inside an allowed zone.
	p := newTestPipeline(&fakeProvider{name: "opencage"}, &fakeReverse{}, nil)

	origin := domain.Coordinate{Lat: 21.4195, Lon: -104.8427}
	destination := domain.Coordinate{Lat: 21.4200, Lon: -104.8430}

	quote, err := p.Quote(context.Background(), origin, destination)

	require.NoError(t, err)
	assert.Empty(t, quote.DestinationAddress)
}

func TestPipelineCheckReadiness(t *testing.T) {
	p := newTestPipeline(&fakeProvider{name: "opencage"}, &fakeReverse{}, nil)

	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Error(t, (&Pipeline{}).CheckReadiness(context.Background()))
}

func TestPipelineResolve_PublishFailureDoesNotFailRequest(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: tepicResult(9), found: true}
	p := newTestPipeline(primary, &fakeReverse{}, failingPublisher{})

	_, err := p.Resolve(context.Background(), "Av. México 100, Tepic")

	assert.NoError(t, err)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, domain.DispatchEvent) error {
	return assert.AnError
}
