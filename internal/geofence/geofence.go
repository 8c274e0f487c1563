// Package geofence validates resolved points against the operator's service
// area: a rectangular bounding box, an allow-list of municipalities, and a
// set of named circular exception zones held in an R-tree index.
package geofence

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 8

	// One degree of latitude is about 111 km; longitude shrinks with cos(lat).
	kmPerDegreeLat = 111.0
)

// ReverseLookupFunc supplies address components for a coordinate when a
// location arrives without a detected municipality. The implementation is
// expected to be cached.
type ReverseLookupFunc func(ctx context.Context, c domain.Coordinate) (domain.AddressComponents, error)

// zoneEntry wraps a service zone to implement rtreego.Spatial with the
// zone's bounding rectangle.
type zoneEntry struct {
	zone domain.ServiceZone
	rect *rtreego.Rect
}

func (z *zoneEntry) Bounds() *rtreego.Rect { return z.rect }

// Gate decides whether a resolved location is inside the service area.
type Gate struct {
	bounds    domain.BoundingBox
	allowed   map[string]struct{}
	zoneIndex *rtreego.Rtree
	reverse   ReverseLookupFunc
	logger    *slog.Logger
}

// New builds a gate. reverse may be nil, in which case locations without a
// detectable municipality are judged by zones alone.
func New(bounds domain.BoundingBox, municipalities []string, zones []domain.ServiceZone, reverse ReverseLookupFunc, logger *slog.Logger) *Gate {
	allowed := make(map[string]struct{}, len(municipalities))
	for _, m := range municipalities {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			allowed[m] = struct{}{}
		}
	}

	index := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, z := range zones {
		if rect := zoneRect(z); rect != nil {
			index.Insert(&zoneEntry{zone: z, rect: rect})
		}
	}

	return &Gate{
		bounds:    bounds,
		allowed:   allowed,
		zoneIndex: index,
		reverse:   reverse,
		logger:    logger,
	}
}

// zoneRect computes the bounding rectangle of a zone's circle in degrees.
func zoneRect(z domain.ServiceZone) *rtreego.Rect {
	latDelta := z.RadiusKm / kmPerDegreeLat
	lonScale := math.Cos(z.Center.Lat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonDelta := z.RadiusKm / (kmPerDegreeLat * lonScale)

	rect, err := rtreego.NewRect(
		rtreego.Point{z.Center.Lat - latDelta, z.Center.Lon - lonDelta},
		[]float64{2 * latDelta, 2 * lonDelta},
	)
	if err != nil {
		return nil
	}
	return rect
}

// InBounds reports rectangular containment in the operator's bounding box.
func (g *Gate) InBounds(c domain.Coordinate) bool {
	return g.bounds.Contains(c)
}

// AllowedMunicipality reports whether the detected municipality is on the
// allow-list (case-insensitive).
func (g *Gate) AllowedMunicipality(components domain.AddressComponents) bool {
	m := components.Municipality()
	if m == "" {
		return false
	}
	_, ok := g.allowed[strings.ToLower(m)]
	return ok
}

// InServiceZone reports whether the coordinate lies within any configured
// zone's radius. Candidate zones come from the R-tree; the exact
// great-circle test decides.
func (g *Gate) InServiceZone(c domain.Coordinate) bool {
	point := rtreego.Point{c.Lat, c.Lon}
	for _, hit := range g.zoneIndex.SearchIntersect(point.ToRect(1e-9)) {
		z := hit.(*zoneEntry).zone
		if domain.HaversineKm(z.Center, c) <= z.RadiusKm {
			return true
		}
	}
	return false
}

// Check accepts a location only when it is in-bounds AND (its municipality
// is allowed OR it lies in a service zone). When no municipality can be
// determined from the location's own components, one reverse-geocode round
// trip supplies them before the decision.
func (g *Gate) Check(ctx context.Context, loc domain.ResolvedLocation) error {
	if !g.InBounds(loc.Coordinate) {
		return domain.NewFailure(domain.FailureOutOfBounds,
			"coordinate "+loc.Coordinate.String()+" is outside the service extent")
	}

	components := loc.Components
	if components.Municipality() == "" && g.reverse != nil {
		detected, err := g.reverse(ctx, loc.Coordinate)
		if err != nil {
			g.logger.Warn("municipality fallback lookup failed",
				"coordinate", loc.Coordinate.String(),
				"error", err,
			)
		} else {
			components = detected
		}
	}

	if g.AllowedMunicipality(components) || g.InServiceZone(loc.Coordinate) {
		return nil
	}
	return domain.NewFailure(domain.FailureOutOfServiceArea,
		"location "+loc.Coordinate.String()+" is outside the served municipalities and zones")
}
