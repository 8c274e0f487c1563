package domain

import (
	"fmt"
	"math"
	"strings"
)

// Provenance identifies which resolution source produced a location.
type Provenance string

const (
	ProvenanceGazetteer       Provenance = "gazetteer"
	ProvenanceOpenCage        Provenance = "opencage"
	ProvenanceMapbox          Provenance = "mapbox"
	ProvenanceOpenCageReverse Provenance = "opencage-reverse"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate validates latitude/longitude ranges and rejects NaN/Inf.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Coordinate{}, NewFailure(FailureInvalidInput, fmt.Sprintf("invalid coordinate (%v, %v)", lat, lon))
	}
	return c, nil
}

// Valid reports whether the coordinate is finite and within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

// BoundingBox is the rectangular region defining the operator's maximum
// service extent.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the coordinate lies inside the box (inclusive).
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// ServiceZone is a named circular exception area served even when its
// municipality is not on the allow-list.
type ServiceZone struct {
	Name     string     `json:"name"`
	Center   Coordinate `json:"center"`
	RadiusKm float64    `json:"radius_km"`
}

// AddressComponents maps semantic address fields (city, road, house_number,
// suburb, postcode, category, ...) to their values.
type AddressComponents map[string]string

// Municipality returns the most specific locality-level component, trying
// city, town, county, then village.
func (a AddressComponents) Municipality() string {
	for _, key := range []string{"city", "town", "county", "village"} {
		if v := strings.TrimSpace(a[key]); v != "" {
			return v
		}
	}
	return ""
}

// ResolvedLocation is the outcome of resolving rider input to a point.
// It is never mutated after creation; grading produces a separate
// QualityAssessment rather than annotating the location in place.
type ResolvedLocation struct {
	Coordinate       Coordinate        `json:"coordinate"`
	FormattedAddress string            `json:"formatted_address"`
	Provenance       Provenance        `json:"provenance"`
	RawConfidence    float64           `json:"raw_confidence"`
	Components       AddressComponents `json:"components,omitempty"`
	Alternatives     []string          `json:"alternatives,omitempty"` // at most 2
}

// QualityTier is the calibrated cross-provider confidence classification.
type QualityTier string

const (
	TierExcellent  QualityTier = "excellent"
	TierGood       QualityTier = "good"
	TierAcceptable QualityTier = "acceptable"
	TierLow        QualityTier = "low"
	TierUnknown    QualityTier = "unknown"
)

// Demote returns the tier one step lower; Low and Unknown stay put.
func (t QualityTier) Demote() QualityTier {
	switch t {
	case TierExcellent:
		return TierGood
	case TierGood:
		return TierAcceptable
	case TierAcceptable:
		return TierLow
	default:
		return t
	}
}

// QualityAssessment pairs a tier with an estimated precision radius.
type QualityAssessment struct {
	Tier            QualityTier `json:"tier"`
	PrecisionMeters int         `json:"precision_meters"`
}

// RouteRole marks whether a parsed link coordinate or query is the origin or
// destination of a navigation request, rather than a single point.
type RouteRole string

const (
	RouteRoleNone        RouteRole = ""
	RouteRoleOrigin      RouteRole = "origin"
	RouteRoleDestination RouteRole = "destination"
)

// LocationIntent is the outcome of parsing a shared map link: a coordinate,
// a free-text query, or neither (unparsable). A route link additionally
// carries the role of the extracted value and, for origins, the raw
// destination text.
type LocationIntent struct {
	Coordinate      *Coordinate `json:"coordinate,omitempty"`
	Query           string      `json:"query,omitempty"`
	Role            RouteRole   `json:"role,omitempty"`
	DestinationText string      `json:"destination_text,omitempty"`
}

// Empty reports whether the link yielded no usable intent.
func (i LocationIntent) Empty() bool {
	return i.Coordinate == nil && i.Query == ""
}

// FareQuote is a computed price for a validated origin/destination pair.
type FareQuote struct {
	Origin             Coordinate `json:"origin"`
	Destination        Coordinate `json:"destination"`
	DestinationAddress string     `json:"destination_address,omitempty"`
	DistanceKm         float64    `json:"distance_km"`
	Amount             int        `json:"amount"`
}
