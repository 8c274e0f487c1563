package domain

import "context"

// Provider queries one external geocoding service for a text query, biased
// toward the operator's region and restricted to the bounding box. A failed
// or empty query returns found=false; the returned error, when present,
// records the classified transport failure for diagnostics only.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Search resolves free text to the provider's best box-compliant
	// candidate.
	Search(ctx context.Context, query string, box BoundingBox) (ResolvedLocation, bool, error)
}

// ReverseProvider resolves a coordinate back to address text.
type ReverseProvider interface {
	// ReverseLookup converts a coordinate to the nearest known address.
	// found=false means the provider returned zero results.
	ReverseLookup(ctx context.Context, c Coordinate) (ResolvedLocation, bool, error)
}
