package domain

import "time"

// DispatchEventKind labels the audit events emitted by the pipeline.
type DispatchEventKind string

const (
	EventLocationResolved DispatchEventKind = "location_resolved"
	EventFareQuoted       DispatchEventKind = "fare_quoted"
)

// DispatchEvent is the audit record published for downstream consumers when
// a resolution or a fare quote completes. It is fire-and-forget from the
// resolution pipeline; a publish failure never fails the request.
type DispatchEvent struct {
	Kind        DispatchEventKind  `json:"kind"`
	Input       string             `json:"input,omitempty"`
	Location    *ResolvedLocation  `json:"location,omitempty"`
	Quality     *QualityAssessment `json:"quality,omitempty"`
	Quote       *FareQuote         `json:"quote,omitempty"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// NewResolutionEvent builds the audit event for a successful resolution.
func NewResolutionEvent(input string, loc ResolvedLocation, q QualityAssessment) DispatchEvent {
	return DispatchEvent{
		Kind:        EventLocationResolved,
		Input:       input,
		Location:    &loc,
		Quality:     &q,
		ProcessedAt: clock.Now(),
	}
}

// NewQuoteEvent builds the audit event for a computed fare quote.
func NewQuoteEvent(quote FareQuote) DispatchEvent {
	return DispatchEvent{
		Kind:        EventFareQuoted,
		Quote:       &quote,
		ProcessedAt: clock.Now(),
	}
}
