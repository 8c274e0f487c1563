package linkparse

import (
	"testing"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AtPathSegment(t *testing.T) {
	intent := Parse("https://www.google.com/maps/place/Forum+Tepic/@21.4925,-104.8532,15z/data=stuff")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.4925, intent.Coordinate.Lat)
	assert.Equal(t, -104.8532, intent.Coordinate.Lon)
	assert.Equal(t, domain.RouteRoleNone, intent.Role)
}

func TestParse_AtSegmentWithoutZoom(t *testing.T) {
	intent := Parse("https://maps.google.com/maps/@21.5041,-104.8946")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.5041, intent.Coordinate.Lat)
}

func TestParse_DataBlobCoordinates(t *testing.T) {
	intent := Parse("https://www.google.com/maps/place/X/data=!4m6!3m5!1s0x0:0x0!7e2!8m2!3d21.4983!4d-104.8691")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.4983, intent.Coordinate.Lat)
	assert.Equal(t, -104.8691, intent.Coordinate.Lon)
}

func TestParse_RouteOriginCoordinate(t *testing.T) {
	intent := Parse("https://maps.google.com/maps?saddr=21.5,-104.9&daddr=Walmart+Tepic")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.5, intent.Coordinate.Lat)
	assert.Equal(t, -104.9, intent.Coordinate.Lon)
	assert.Equal(t, domain.RouteRoleOrigin, intent.Role)
	assert.Equal(t, "Walmart Tepic", intent.DestinationText)
}

func TestParse_RouteOriginText(t *testing.T) {
	intent := Parse("https://maps.google.com/maps?saddr=Catedral+de+Tepic&daddr=Forum+Tepic")

	assert.Nil(t, intent.Coordinate)
	assert.Equal(t, "Catedral de Tepic", intent.Query)
	assert.Equal(t, domain.RouteRoleOrigin, intent.Role)
	assert.Equal(t, "Forum Tepic", intent.DestinationText)
}

func TestParse_RouteDestinationOnlyCoordinate(t *testing.T) {
	intent := Parse("https://maps.google.com/maps?daddr=21.4195,-104.8427")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.4195, intent.Coordinate.Lat)
	assert.Equal(t, domain.RouteRoleDestination, intent.Role)
}

func TestParse_RouteDestinationOnlyText(t *testing.T) {
	intent := Parse("https://maps.google.com/maps?daddr=Aeropuerto+Amado+Nervo")

	assert.Nil(t, intent.Coordinate)
	assert.Equal(t, "Aeropuerto Amado Nervo", intent.Query)
	assert.Equal(t, domain.RouteRoleDestination, intent.Role)
}

func TestParse_QueryParamCoordinate(t *testing.T) {
	intent := Parse("https://maps.google.com/?q=21.50,-104.89")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.50, intent.Coordinate.Lat)
	assert.Equal(t, -104.89, intent.Coordinate.Lon)
}

func TestParse_QueryParamText(t *testing.T) {
	intent := Parse("https://maps.google.com/?q=Forum+Tepic")

	assert.Nil(t, intent.Coordinate)
	assert.Equal(t, "Forum Tepic", intent.Query)
}

func TestParse_QueryParamPercentEncoded(t *testing.T) {
	intent := Parse("https://maps.google.com/?q=Catedral%20de%20Tepic")

	assert.Equal(t, "Catedral de Tepic", intent.Query)
}

func TestParse_CombinedLatLonParams(t *testing.T) {
	intent := Parse("https://maps.google.com/?sll=21.4869,-104.8614")
	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.4869, intent.Coordinate.Lat)

	intent = Parse("https://maps.google.com/?ll=21.5114,-104.8887")
	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, -104.8887, intent.Coordinate.Lon)
}

func TestParse_PlacePathSegment(t *testing.T) {
	intent := Parse("https://www.google.com/maps/place/Plaza+Cigarrera")

	assert.Nil(t, intent.Coordinate)
	assert.Equal(t, "Plaza Cigarrera", intent.Query)
}

func TestParse_SearchPathSegment(t *testing.T) {
	intent := Parse("https://www.google.com/maps/search/Mercado%20Juan%20Escutia")

	assert.Equal(t, "Mercado Juan Escutia", intent.Query)
}

func TestParse_FragmentCoordinates(t *testing.T) {
	intent := Parse("https://www.openstreetmap.org/#map=16/21.5039/-104.8912&foo")

	// The fragment holds "16/21.5039/-104.8912"; only a comma pair counts.
	assert.Nil(t, intent.Coordinate)

	intent = Parse("https://example.com/share#21.5039,-104.8912")
	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.5039, intent.Coordinate.Lat)
	assert.Equal(t, -104.8912, intent.Coordinate.Lon)
}

func TestParse_PriorityOrder(t *testing.T) {
	// The @ path segment outranks the query parameter.
	intent := Parse("https://www.google.com/maps/@21.4925,-104.8532,14z?q=somewhere+else")

	require.NotNil(t, intent.Coordinate)
	assert.Equal(t, 21.4925, intent.Coordinate.Lat)
	assert.Empty(t, intent.Query)
}

func TestParse_Unparsable(t *testing.T) {
	tests := []string{
		"https://maps.app.goo.gl/AbC123xyz",
		"https://example.com/nothing/here",
		"not a url at all",
		"",
	}
	for _, raw := range tests {
		intent := Parse(raw)
		assert.True(t, intent.Empty(), "input %q", raw)
	}
}

func TestParse_RejectsOutOfRangeCoordinates(t *testing.T) {
	intent := Parse("https://maps.google.com/?q=95.0,-200.0")

	// Parses as text since the pair is not a valid coordinate.
	assert.Nil(t, intent.Coordinate)
	assert.Equal(t, "95.0,-200.0", intent.Query)
}
