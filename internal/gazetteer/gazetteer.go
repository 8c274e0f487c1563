// Package gazetteer resolves well-known place names from a curated table,
// with no network I/O. A hit is authoritative: provenance gazetteer,
// maximal confidence.
package gazetteer

import (
	"strings"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
)

// gazetteerConfidence is the fixed raw confidence of a table hit, on the
// same 0–10 ordinal scale the primary provider reports.
const gazetteerConfidence = 10

// Entry is one curated place: the normalized name fragments it matches on,
// plus its canonical coordinate and address.
type Entry struct {
	Keys             []string
	Coordinate       domain.Coordinate
	FormattedAddress string
	Components       domain.AddressComponents
}

// Gazetteer is the process-wide read-only place table, loaded once at start.
type Gazetteer struct {
	entries []Entry
}

// New builds a gazetteer, normalizing every match key.
func New(entries []Entry) *Gazetteer {
	normalized := make([]Entry, len(entries))
	for i, e := range entries {
		keys := make([]string, 0, len(e.Keys))
		for _, k := range e.Keys {
			if k = normalize(k); k != "" {
				keys = append(keys, k)
			}
		}
		e.Keys = keys
		normalized[i] = e
	}
	return &Gazetteer{entries: normalized}
}

// Lookup matches the input against the table. A key matches when the
// normalized input contains it as a substring, or the key contains the whole
// input (partial rider input may match a longer canonical key). When several
// keys match, the longest key wins; ties break lexicographically, so the
// result never depends on table order.
func (g *Gazetteer) Lookup(text string) (domain.ResolvedLocation, bool) {
	input := normalize(text)
	if input == "" {
		return domain.ResolvedLocation{}, false
	}

	var (
		best    *Entry
		bestKey string
	)
	for i := range g.entries {
		e := &g.entries[i]
		for _, key := range e.Keys {
			if !strings.Contains(input, key) && !strings.Contains(key, input) {
				continue
			}
			if best == nil || betterKey(key, bestKey) {
				best = e
				bestKey = key
			}
		}
	}
	if best == nil {
		return domain.ResolvedLocation{}, false
	}

	return domain.ResolvedLocation{
		Coordinate:       best.Coordinate,
		FormattedAddress: best.FormattedAddress,
		Provenance:       domain.ProvenanceGazetteer,
		RawConfidence:    gazetteerConfidence,
		Components:       best.Components,
	}, true
}

// betterKey prefers the longer key; equal lengths break lexicographically.
func betterKey(candidate, current string) bool {
	if len(candidate) != len(current) {
		return len(candidate) > len(current)
	}
	return candidate < current
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Default returns the hand-curated table for the Tepic service area.
func Default() *Gazetteer {
	tepic := func(extra domain.AddressComponents) domain.AddressComponents {
		c := domain.AddressComponents{"city": "Tepic", "state": "Nayarit", "country": "México"}
		for k, v := range extra {
			c[k] = v
		}
		return c
	}

	return New([]Entry{
		{
			Keys:             []string{"forum tepic", "plaza forum"},
			Coordinate:       domain.Coordinate{Lat: 21.4925, Lon: -104.8532},
			FormattedAddress: "Forum Tepic, Blvd. Luis Donaldo Colosio 680, Benito Juárez, 63175 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "mall", "road": "Blvd. Luis Donaldo Colosio", "house_number": "680", "suburb": "Benito Juárez", "postcode": "63175"}),
		},
		{
			Keys:             []string{"catedral", "catedral de tepic"},
			Coordinate:       domain.Coordinate{Lat: 21.5072, Lon: -104.8945},
			FormattedAddress: "Catedral de Tepic, Av. México Nte. 18, Centro, 63000 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "landmark", "road": "Av. México Nte.", "house_number": "18", "suburb": "Centro", "postcode": "63000"}),
		},
		{
			Keys:             []string{"aeropuerto", "aeropuerto amado nervo", "airport"},
			Coordinate:       domain.Coordinate{Lat: 21.4195, Lon: -104.8427},
			FormattedAddress: "Aeropuerto Internacional Amado Nervo, Carretera Tepic-Puerto Vallarta km 4.5, 63737 Pantanal, Nayarit, México",
			Components:       domain.AddressComponents{"category": "airport", "town": "Pantanal", "state": "Nayarit", "country": "México", "postcode": "63737"},
		},
		{
			Keys:             []string{"central camionera", "central de autobuses"},
			Coordinate:       domain.Coordinate{Lat: 21.4869, Lon: -104.8614},
			FormattedAddress: "Central de Autobuses de Tepic, Blvd. Tepic-Xalisco s/n, Fracc. Las Aves, 63190 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "bus_station", "road": "Blvd. Tepic-Xalisco", "suburb": "Fracc. Las Aves", "postcode": "63190"}),
		},
		{
			Keys:             []string{"hospital general", "hospital civil"},
			Coordinate:       domain.Coordinate{Lat: 21.4937, Lon: -104.8797},
			FormattedAddress: "Hospital General de Tepic, Paseo de la Loma s/n, La Loma, 63137 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "hospital", "road": "Paseo de la Loma", "suburb": "La Loma", "postcode": "63137"}),
		},
		{
			Keys:             []string{"universidad autonoma de nayarit", "uan", "ciudad de la cultura"},
			Coordinate:       domain.Coordinate{Lat: 21.4892, Lon: -104.8992},
			FormattedAddress: "Universidad Autónoma de Nayarit, Cd. de la Cultura Amado Nervo, 63155 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "university", "suburb": "Cd. de la Cultura", "postcode": "63155"}),
		},
		{
			Keys:             []string{"walmart tepic", "walmart insurgentes"},
			Coordinate:       domain.Coordinate{Lat: 21.4983, Lon: -104.8691},
			FormattedAddress: "Walmart, Av. Insurgentes 1075 Ote., El Rodeo, 63054 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "supermarket", "road": "Av. Insurgentes", "house_number": "1075", "suburb": "El Rodeo", "postcode": "63054"}),
		},
		{
			Keys:             []string{"plaza cigarrera"},
			Coordinate:       domain.Coordinate{Lat: 21.5114, Lon: -104.8887},
			FormattedAddress: "Plaza Cigarrera, Blvd. Tepic-Xalisco 1091, Cd. Industrial, 63173 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "mall", "road": "Blvd. Tepic-Xalisco", "house_number": "1091", "suburb": "Cd. Industrial", "postcode": "63173"}),
		},
		{
			Keys:             []string{"mercado del mar", "mercado juan escutia"},
			Coordinate:       domain.Coordinate{Lat: 21.5039, Lon: -104.8912},
			FormattedAddress: "Mercado Juan Escutia, Zapata Ote., Centro, 63000 Tepic, Nayarit, México",
			Components:       tepic(domain.AddressComponents{"category": "market", "road": "Zapata Ote.", "suburb": "Centro", "postcode": "63000"}),
		},
		{
			Keys:             []string{"xalisco centro", "centro de xalisco"},
			Coordinate:       domain.Coordinate{Lat: 21.4672, Lon: -104.8957},
			FormattedAddress: "Centro, 63780 Xalisco, Nayarit, México",
			Components:       domain.AddressComponents{"city": "Xalisco", "suburb": "Centro", "state": "Nayarit", "country": "México", "postcode": "63780"},
		},
	})
}
