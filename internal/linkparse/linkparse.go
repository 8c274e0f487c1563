// Package linkparse extracts a location intent from a shared map-service
// URL. Parsing is pure and operates on an already fully-resolved URL;
// following short-link redirects is the caller's concern.
//
// Extraction strategies run in a fixed priority order: structurally
// unambiguous sources (path coordinates, embedded data fields) are trusted
// before loosely-typed query parameters, and route intents are distinguished
// from point intents because a route's origin is a better proxy for "where
// is the rider" than its destination.
package linkparse

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
)

var (
	// "/@21.4925,-104.8532,15z" style path coordinates, zoom optional.
	atSegmentRe = regexp.MustCompile(`/@(-?\d{1,2}(?:\.\d+)?),(-?\d{1,3}(?:\.\d+)?)(?:,\d+(?:\.\d+)?z)?`)

	// Decimal-degree fields tagged inside an opaque data blob: !3d<lat>!4d<lon>.
	dataLatRe = regexp.MustCompile(`!3d(-?\d{1,2}\.\d+)`)
	dataLonRe = regexp.MustCompile(`!4d(-?\d{1,3}\.\d+)`)

	// A bare "lat,lon" pair, also used to scan URL fragments.
	latLonRe = regexp.MustCompile(`(-?\d{1,2}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)`)
)

// Parse extracts a location intent from a shared map link. An unrecognized
// link yields the zero intent.
func Parse(rawURL string) domain.LocationIntent {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return domain.LocationIntent{}
	}
	query := u.Query()

	extractors := []func(*url.URL, url.Values) (domain.LocationIntent, bool){
		fromAtSegment,
		fromDataBlob,
		fromRouteParams,
		fromQueryParam,
		fromLatLonParam,
		fromPlacePath,
		fromFragment,
	}
	for _, extract := range extractors {
		if intent, ok := extract(u, query); ok {
			return intent
		}
	}
	return domain.LocationIntent{}
}

// fromAtSegment handles the "/@lat,lon[,zoom]" path shape.
func fromAtSegment(u *url.URL, _ url.Values) (domain.LocationIntent, bool) {
	m := atSegmentRe.FindStringSubmatch(u.Path)
	if m == nil {
		return domain.LocationIntent{}, false
	}
	c, ok := parseLatLonParts(m[1], m[2])
	if !ok {
		return domain.LocationIntent{}, false
	}
	return domain.LocationIntent{Coordinate: &c}, true
}

// fromDataBlob handles coordinates embedded in an opaque data parameter as
// tagged !3d / !4d decimal-degree fields. The blob may live in the path or
// in a query parameter, so the full URL is scanned.
func fromDataBlob(u *url.URL, _ url.Values) (domain.LocationIntent, bool) {
	s := u.String()
	latM := dataLatRe.FindStringSubmatch(s)
	lonM := dataLonRe.FindStringSubmatch(s)
	if latM == nil || lonM == nil {
		return domain.LocationIntent{}, false
	}
	c, ok := parseLatLonParts(latM[1], lonM[1])
	if !ok {
		return domain.LocationIntent{}, false
	}
	return domain.LocationIntent{Coordinate: &c}, true
}

// fromRouteParams handles navigation links carrying saddr/daddr parameters.
func fromRouteParams(_ *url.URL, q url.Values) (domain.LocationIntent, bool) {
	origin, hasOrigin := firstParam(q, "saddr")
	dest, hasDest := firstParam(q, "daddr")
	if !hasOrigin && !hasDest {
		return domain.LocationIntent{}, false
	}

	if hasOrigin {
		intent := domain.LocationIntent{Role: domain.RouteRoleOrigin, DestinationText: dest}
		if c, ok := parseLatLon(origin); ok {
			intent.Coordinate = &c
		} else {
			intent.Query = origin
		}
		return intent, true
	}

	intent := domain.LocationIntent{Role: domain.RouteRoleDestination}
	if c, ok := parseLatLon(dest); ok {
		intent.Coordinate = &c
	} else {
		intent.Query = dest
	}
	return intent, true
}

// fromQueryParam handles the generic single query parameter: a "lat,lon"
// value becomes a coordinate, anything else free text.
func fromQueryParam(_ *url.URL, q url.Values) (domain.LocationIntent, bool) {
	for _, key := range []string{"q", "query"} {
		v, ok := firstParam(q, key)
		if !ok {
			continue
		}
		if c, parsed := parseLatLon(v); parsed {
			return domain.LocationIntent{Coordinate: &c}, true
		}
		return domain.LocationIntent{Query: v}, true
	}
	return domain.LocationIntent{}, false
}

// fromLatLonParam handles the combined coordinate parameters: "sll" from
// search links, "ll" from current-location shares.
func fromLatLonParam(_ *url.URL, q url.Values) (domain.LocationIntent, bool) {
	for _, key := range []string{"sll", "ll"} {
		v, ok := firstParam(q, key)
		if !ok {
			continue
		}
		if c, parsed := parseLatLon(v); parsed {
			return domain.LocationIntent{Coordinate: &c}, true
		}
	}
	return domain.LocationIntent{}, false
}

// fromPlacePath handles human-readable "/place/<name>" and "/search/<name>"
// path segments.
func fromPlacePath(u *url.URL, _ url.Values) (domain.LocationIntent, bool) {
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if (seg != "place" && seg != "search") || i+1 >= len(segments) {
			continue
		}
		name := segments[i+1]
		if name == "" || strings.HasPrefix(name, "@") {
			continue
		}
		decoded, err := url.PathUnescape(name)
		if err != nil {
			decoded = name
		}
		decoded = strings.TrimSpace(strings.ReplaceAll(decoded, "+", " "))
		if decoded == "" {
			continue
		}
		return domain.LocationIntent{Query: decoded}, true
	}
	return domain.LocationIntent{}, false
}

// fromFragment handles a coordinate pair embedded after the "#".
func fromFragment(u *url.URL, _ url.Values) (domain.LocationIntent, bool) {
	if u.Fragment == "" {
		return domain.LocationIntent{}, false
	}
	m := latLonRe.FindStringSubmatch(u.Fragment)
	if m == nil {
		return domain.LocationIntent{}, false
	}
	c, ok := parseLatLonParts(m[1], m[2])
	if !ok {
		return domain.LocationIntent{}, false
	}
	return domain.LocationIntent{Coordinate: &c}, true
}

// firstParam returns the first non-empty value for key. Values arrive
// already decoded (plus signs included) via url.Values.
func firstParam(q url.Values, key string) (string, bool) {
	v := strings.TrimSpace(q.Get(key))
	return v, v != ""
}

// CoordinateText parses a bare "lat,lon" string into a validated
// coordinate. Shared with the pipeline for raw coordinate input.
func CoordinateText(s string) (domain.Coordinate, bool) {
	return parseLatLon(s)
}

// parseLatLon parses a "lat,lon" string into a validated coordinate.
func parseLatLon(s string) (domain.Coordinate, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, false
	}
	return parseLatLonParts(parts[0], parts[1])
}

func parseLatLonParts(latStr, lonStr string) (domain.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, false
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return domain.Coordinate{}, false
	}
	return c, true
}
