// Package domain models the location resolution and fare pipeline of the
// ride dispatch backend.
//
// # Resolution sources
//
// Rider input (free text, a shared map link, or raw coordinates) resolves
// through three sources, in cost order:
//
//	gazetteer  — curated table of known places; free, authoritative, always
//	             maximal confidence (10).
//	opencage   — forward/reverse geocoder keyed by API key; reports an
//	             ordinal 0–10 confidence and a flat component map.
//	mapbox     — forward geocoder keyed by access token; reports a 0–1
//	             relevance score and a contextual component list.
//
// The two external providers score confidence on incompatible scales, so
// quality thresholds are tuned per provider and cross-provider comparison
// normalizes both to a 0–1 basis first.
//
// # Service area
//
// The operator serves Tepic, Nayarit (MX). A resolved point is accepted only
// when it lies inside the configured bounding box AND either its detected
// municipality is on the allow-list or the point falls within a named
// circular service zone (airport, outlying towns). When the point's own
// components carry no municipality, one cached reverse-geocode round trip
// supplies them before the decision.
//
// # Failure kinds
//
// Every caller-visible failure carries a [FailureKind] attached where the
// condition is detected. Provider transport failures (timeout, DNS, auth,
// rate limit) are classified for diagnostics but degrade to "no candidate";
// only exhaustion of all sources surfaces as FailureUnresolvable.
package domain
