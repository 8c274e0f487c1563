// Package grading calibrates provider-specific confidence scores into a
// cross-provider quality tier and precision radius. Grading is pure: closed
// predicates over strings and numbers, no I/O.
package grading

import (
	"regexp"
	"strings"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
)

// Precision radii per tier, in meters. Gazetteer hits pin the exact curated
// point, so their excellent tier carries a much tighter radius than a
// provider's.
const (
	precisionGazetteer  = 5
	precisionExcellent  = 50
	precisionGood       = 150
	precisionAcceptable = 300
	precisionLow        = 600
	precisionUnknown    = 1000
)

// OpenCage reports an ordinal 0–10 confidence.
const (
	openCageExcellent  = 9
	openCageGood       = 7
	openCageAcceptable = 5
)

// Mapbox reports a 0–1 relevance score.
const (
	mapboxExcellent  = 0.9
	mapboxGood       = 0.75
	mapboxAcceptable = 0.5
)

// Grader grades resolved locations against the operator's known localities.
type Grader struct {
	localities   []string
	countryNames []string
	postalOnlyRe *regexp.Regexp
}

// NewGrader builds a grader for the given locality names (lower-cased
// matching). The region and country names recognized by the demotion
// heuristics are fixed to the operator's country.
func NewGrader(localities []string) *Grader {
	lowered := make([]string, 0, len(localities))
	for _, l := range localities {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			lowered = append(lowered, l)
		}
	}
	return &Grader{
		localities:   lowered,
		countryNames: []string{"méxico", "mexico"},
		// A bare 5-digit postal code, optionally with the region name,
		// followed by the country and nothing else.
		postalOnlyRe: regexp.MustCompile(`(?i)^\s*\d{5}\s*,?\s*(?:nayarit\s*,?\s*)?(?:méxico|mexico)\s*\.?\s*$`),
	}
}

// Grade maps a provenance and raw confidence to a quality assessment, then
// applies the demotion heuristics. Heuristics only ever lower the tier.
func (g *Grader) Grade(prov domain.Provenance, rawConfidence float64, foundAddress, originalInput string) domain.QualityAssessment {
	if prov == domain.ProvenanceGazetteer {
		return domain.QualityAssessment{Tier: domain.TierExcellent, PrecisionMeters: precisionGazetteer}
	}

	tier := bucket(prov, rawConfidence)

	if tier != domain.TierUnknown {
		if g.isGenericResult(foundAddress) || g.isPostalCodeOnly(foundAddress) {
			tier = domain.TierLow
		} else if (tier == domain.TierExcellent || tier == domain.TierGood) &&
			!hasDigit(foundAddress) && hasDigit(originalInput) {
			// The rider gave a street number and the geocoder dropped it:
			// a precision loss, not a total failure.
			tier = tier.Demote()
		}
	}

	return domain.QualityAssessment{Tier: tier, PrecisionMeters: precision(tier)}
}

// bucket applies the per-provider threshold ladder.
func bucket(prov domain.Provenance, confidence float64) domain.QualityTier {
	switch prov {
	case domain.ProvenanceOpenCage, domain.ProvenanceOpenCageReverse:
		switch {
		case confidence >= openCageExcellent:
			return domain.TierExcellent
		case confidence >= openCageGood:
			return domain.TierGood
		case confidence >= openCageAcceptable:
			return domain.TierAcceptable
		default:
			return domain.TierLow
		}
	case domain.ProvenanceMapbox:
		switch {
		case confidence >= mapboxExcellent:
			return domain.TierExcellent
		case confidence >= mapboxGood:
			return domain.TierGood
		case confidence >= mapboxAcceptable:
			return domain.TierAcceptable
		default:
			return domain.TierLow
		}
	default:
		return domain.TierUnknown
	}
}

// isGenericResult detects an address too vague to pinpoint: it names the
// country but none of the operator's localities and carries no digit.
func (g *Grader) isGenericResult(address string) bool {
	lowered := strings.ToLower(address)

	mentionsCountry := false
	for _, c := range g.countryNames {
		if strings.Contains(lowered, c) {
			mentionsCountry = true
			break
		}
	}
	if !mentionsCountry || hasDigit(address) {
		return false
	}
	for _, l := range g.localities {
		if strings.Contains(lowered, l) {
			return false
		}
	}
	return true
}

// isPostalCodeOnly detects a result that is nothing more than a postal code
// plus region/country.
func (g *Grader) isPostalCodeOnly(address string) bool {
	return g.postalOnlyRe.MatchString(address)
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func precision(tier domain.QualityTier) int {
	switch tier {
	case domain.TierExcellent:
		return precisionExcellent
	case domain.TierGood:
		return precisionGood
	case domain.TierAcceptable:
		return precisionAcceptable
	case domain.TierLow:
		return precisionLow
	default:
		return precisionUnknown
	}
}
