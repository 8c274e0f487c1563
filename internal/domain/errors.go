package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind is the closed set of caller-visible failure categories.
// Kinds are assigned at the point of detection and never reconstructed from
// error message text.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureInvalidInput
	FailureProviderTransport
	FailureUnresolvable
	FailureAddressNotFound
	FailureOutOfBounds
	FailureOutOfServiceArea
	FailureFareCalculation
)

// Code returns the stable error code string for a failure kind, used by the
// surrounding route layer to pick a response code.
func (k FailureKind) Code() string {
	switch k {
	case FailureInvalidInput:
		return "invalid_input"
	case FailureProviderTransport:
		return "provider_transport_error"
	case FailureUnresolvable:
		return "unresolvable"
	case FailureAddressNotFound:
		return "address_not_found"
	case FailureOutOfBounds:
		return "out_of_bounds"
	case FailureOutOfServiceArea:
		return "out_of_service_area"
	case FailureFareCalculation:
		return "fare_calculation_error"
	default:
		return "unknown"
	}
}

func (k FailureKind) String() string { return k.Code() }

// Failure is an error carrying an explicit kind.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure creates a Failure with the given kind and message.
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// WrapFailure creates a Failure wrapping an underlying error.
func WrapFailure(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from an error chain, or FailureUnknown.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureUnknown
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind FailureKind) bool {
	return KindOf(err) == kind
}

// TransportClass categorizes a provider transport failure for diagnostics.
// Classification never changes control flow: every class degrades to
// "no candidate" inside the provider query layer.
type TransportClass string

const (
	TransportAuth        TransportClass = "auth"
	TransportNotFound    TransportClass = "dns_not_found"
	TransportTimeout     TransportClass = "timeout"
	TransportRateLimited TransportClass = "rate_limited"
	TransportOther       TransportClass = "other"
)

// ClassifyStatus maps an HTTP response status to a transport class.
func ClassifyStatus(status int) TransportClass {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return TransportAuth
	case http.StatusTooManyRequests:
		return TransportRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return TransportTimeout
	default:
		return TransportOther
	}
}

// ClassifyTransportError maps a request-level error (no HTTP response) to a
// transport class.
func ClassifyTransportError(err error) TransportClass {
	if err == nil {
		return TransportOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}
	return TransportOther
}
