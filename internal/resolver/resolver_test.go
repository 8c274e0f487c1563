package resolver

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/geocache"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
)

var testBounds = domain.BoundingBox{MinLat: 21.35, MaxLat: 21.65, MinLon: -105.05, MaxLon: -104.75}

type fakeGazetteer struct {
	hit   domain.ResolvedLocation
	found bool
}

func (f *fakeGazetteer) Lookup(string) (domain.ResolvedLocation, bool) {
	return f.hit, f.found
}

type fakeProvider struct {
	name   string
	result domain.ResolvedLocation
	found  bool
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, _ domain.BoundingBox) (domain.ResolvedLocation, bool, error) {
	f.calls++
	return f.result, f.found, f.err
}

type fakeReverse struct {
	result domain.ResolvedLocation
	found  bool
	err    error
	calls  int
}

func (f *fakeReverse) ReverseLookup(_ context.Context, _ domain.Coordinate) (domain.ResolvedLocation, bool, error) {
	f.calls++
	return f.result, f.found, f.err
}

func located(lat, lon, confidence float64, prov domain.Provenance) domain.ResolvedLocation {
	return domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: lat, Lon: lon},
		FormattedAddress: "Av. México 100, Tepic, Nayarit",
		Provenance:       prov,
		RawConfidence:    confidence,
	}
}

func newTestResolver(gaz Gazetteer, primary, secondary domain.Provider, reverse domain.ReverseProvider) *Resolver {
	if gaz == nil {
		gaz = &fakeGazetteer{}
	}
	cfg := Config{Bounds: testBounds, HighConfidence: 8, DegradationRatio: 0.85}
	cache := geocache.New(64, time.Hour)
	metrics := observability.NewMetricsForTesting()
	return New(gaz, primary, secondary, reverse, cache, cfg, metrics, slog.Default())
}

func TestResolveText_RejectsShortInput(t *testing.T) {
	r := newTestResolver(nil, &fakeProvider{}, &fakeProvider{}, &fakeReverse{})

	_, err := r.ResolveText(context.Background(), "  ok ")

	assert.True(t, domain.IsKind(err, domain.FailureInvalidInput))
}

func TestResolveText_GazetteerShortCircuits(t *testing.T) {
	gaz := &fakeGazetteer{hit: located(21.4925, -104.8532, 10, domain.ProvenanceGazetteer), found: true}
	primary := &fakeProvider{name: "opencage"}
	secondary := &fakeProvider{name: "mapbox"}
	r := newTestResolver(gaz, primary, secondary, &fakeReverse{})

	loc, err := r.ResolveText(context.Background(), "forum tepic")

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceGazetteer, loc.Provenance)
	assert.Zero(t, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestResolveText_HighConfidencePrimarySkipsSecondary(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: located(21.5, -104.89, 9, domain.ProvenanceOpenCage), found: true}
	secondary := &fakeProvider{name: "mapbox"}
	r := newTestResolver(nil, primary, secondary, &fakeReverse{})

	loc, err := r.ResolveText(context.Background(), "av insurgentes 250")

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceOpenCage, loc.Provenance)
	assert.Zero(t, secondary.calls)
}

func TestResolveText_ArbitrationPrefersSecondary(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: located(21.5, -104.89, 7, domain.ProvenanceOpenCage), found: true}
	secondary := &fakeProvider{name: "mapbox", result: located(21.51, -104.88, 0.8, domain.ProvenanceMapbox), found: true}
	r := newTestResolver(nil, primary, secondary, &fakeReverse{})

	loc, err := r.ResolveText(context.Background(), "calle hidalgo 45")

	// 0.8 >= 0.7 * 0.85, so the secondary candidate wins.
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceMapbox, loc.Provenance)
}

func TestResolveText_ArbitrationKeepsPrimaryOnDegradedSecondary(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: located(21.5, -104.89, 7, domain.ProvenanceOpenCage), found: true}
	secondary := &fakeProvider{name: "mapbox", result: located(21.9, -104.1, 0.4, domain.ProvenanceMapbox), found: true}
	r := newTestResolver(nil, primary, secondary, &fakeReverse{})

	loc, err := r.ResolveText(context.Background(), "calle hidalgo 45")

	// 0.4 < 0.7 * 0.85, so the degraded secondary candidate loses.
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceOpenCage, loc.Provenance)
}

func TestResolveText_FallsBackToOnlyAnsweringProvider(t *testing.T) {
	primary := &fakeProvider{name: "opencage", err: errors.New("upstream 500")}
	secondary := &fakeProvider{name: "mapbox", result: located(21.51, -104.88, 0.7, domain.ProvenanceMapbox), found: true}
	r := newTestResolver(nil, primary, secondary, &fakeReverse{})

	loc, err := r.ResolveText(context.Background(), "mercado juan escutia")

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceMapbox, loc.Provenance)
}

func TestResolveText_BothProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "opencage", err: errors.New("timeout")}
	secondary := &fakeProvider{name: "mapbox", err: errors.New("dns")}
	r := newTestResolver(nil, primary, secondary, &fakeReverse{})

	_, err := r.ResolveText(context.Background(), "mercado juan escutia")

	assert.True(t, domain.IsKind(err, domain.FailureUnresolvable))
}

func TestResolveText_NeitherProviderFinds(t *testing.T) {
	r := newTestResolver(nil, &fakeProvider{name: "opencage"}, &fakeProvider{name: "mapbox"}, &fakeReverse{})

	_, err := r.ResolveText(context.Background(), "asdfghjkl qwerty")

	assert.True(t, domain.IsKind(err, domain.FailureUnresolvable))
}

func TestResolveText_SecondLookupServedFromCache(t *testing.T) {
	primary := &fakeProvider{name: "opencage", result: located(21.5, -104.89, 9, domain.ProvenanceOpenCage), found: true}
	r := newTestResolver(nil, primary, &fakeProvider{name: "mapbox"}, &fakeReverse{})

	_, err := r.ResolveText(context.Background(), "Av. México 100")
	require.NoError(t, err)
	_, err = r.ResolveText(context.Background(), "  av. méxico 100 ")
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
}

func TestResolveCoordinate_ReturnsReverseResult(t *testing.T) {
	reverse := &fakeReverse{result: located(21.5041, -104.8946, 9, domain.ProvenanceOpenCageReverse), found: true}
	r := newTestResolver(nil, &fakeProvider{}, &fakeProvider{}, reverse)

	loc, err := r.ResolveCoordinate(context.Background(), 21.5041, -104.8946)

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceOpenCageReverse, loc.Provenance)
}

func TestResolveCoordinate_AddressNotFound(t *testing.T) {
	r := newTestResolver(nil, &fakeProvider{}, &fakeProvider{}, &fakeReverse{})

	_, err := r.ResolveCoordinate(context.Background(), 21.5041, -104.8946)

	assert.True(t, domain.IsKind(err, domain.FailureAddressNotFound))
}

func TestResolveCoordinate_RejectsInvalidCoordinate(t *testing.T) {
	r := newTestResolver(nil, &fakeProvider{}, &fakeProvider{}, &fakeReverse{})

	_, err := r.ResolveCoordinate(context.Background(), 123.0, -104.8946)

	assert.True(t, domain.IsKind(err, domain.FailureInvalidInput))
}

func TestResolveCoordinate_SecondLookupServedFromCache(t *testing.T) {
	reverse := &fakeReverse{result: located(21.5041, -104.8946, 9, domain.ProvenanceOpenCageReverse), found: true}
	r := newTestResolver(nil, &fakeProvider{}, &fakeProvider{}, reverse)

	_, err := r.ResolveCoordinate(context.Background(), 21.5041, -104.8946)
	require.NoError(t, err)
	_, err = r.ResolveCoordinate(context.Background(), 21.5041, -104.8946)
	require.NoError(t, err)

	assert.Equal(t, 1, reverse.calls)
}
