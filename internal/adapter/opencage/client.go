// Package opencage implements the primary geocoding provider using the
// OpenCage forward/reverse geocoding API.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
)

const providerName = "opencage"

// Client implements domain.Provider and domain.ReverseProvider against the
// OpenCage API (API-key auth, ordinal 0–10 confidence).
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	userAgent  string
	proximity  domain.Coordinate
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage client biased toward the given regional
// center point.
func NewClient(key string, timeout time.Duration, proximity domain.Coordinate, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   "https://api.opencagedata.com/geocode/v1/json",
		userAgent: "ride-geo-service/1.0 (dispatch resolver)",
		proximity: proximity,
		metrics:   metrics,
		logger:    logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Search resolves free text to the first box-compliant candidate in the
// provider's own ranking order. The next two compliant candidates supply
// the alternative addresses.
func (c *Client) Search(ctx context.Context, query string, box domain.BoundingBox) (domain.ResolvedLocation, bool, error) {
	params := url.Values{
		"q":              {query},
		"key":            {c.key},
		"limit":          {"5"},
		"language":       {"es"},
		"no_annotations": {"1"},
		// bounds is lon,lat ordered: min corner then max corner.
		"bounds":    {fmt.Sprintf("%f,%f,%f,%f", box.MinLon, box.MinLat, box.MaxLon, box.MaxLat)},
		"proximity": {fmt.Sprintf("%f,%f", c.proximity.Lat, c.proximity.Lon)},
	}

	results, err := c.doRequest(ctx, params)
	if err != nil {
		return domain.ResolvedLocation{}, false, err
	}
	return pickCandidate(results, box, domain.ProvenanceOpenCage)
}

// ReverseLookup converts a coordinate to the nearest known address.
func (c *Client) ReverseLookup(ctx context.Context, coord domain.Coordinate) (domain.ResolvedLocation, bool, error) {
	params := url.Values{
		"q":              {fmt.Sprintf("%f,%f", coord.Lat, coord.Lon)},
		"key":            {c.key},
		"limit":          {"1"},
		"language":       {"es"},
		"no_annotations": {"1"},
	}

	results, err := c.doRequest(ctx, params)
	if err != nil {
		return domain.ResolvedLocation{}, false, err
	}
	if len(results) == 0 {
		return domain.ResolvedLocation{}, false, nil
	}
	loc := toLocation(results[0], domain.ProvenanceOpenCageReverse)
	return loc, true, nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values) ([]result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		class := domain.ClassifyTransportError(err)
		c.metrics.ProviderRequests.WithLabelValues(providerName, "error").Inc()
		c.logger.Warn("opencage request failed", "class", string(class), "error", err)
		return nil, domain.WrapFailure(domain.FailureProviderTransport,
			fmt.Sprintf("opencage request (%s)", class), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		class := domain.ClassifyStatus(resp.StatusCode)
		c.metrics.ProviderRequests.WithLabelValues(providerName, "error").Inc()
		c.logger.Warn("opencage API error", "status", resp.StatusCode, "class", string(class))
		return nil, domain.WrapFailure(domain.FailureProviderTransport,
			fmt.Sprintf("opencage status %d (%s)", resp.StatusCode, class),
			fmt.Errorf("%s", body))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerName, "error").Inc()
		return nil, domain.WrapFailure(domain.FailureProviderTransport, "decode opencage response", err)
	}

	if len(decoded.Results) == 0 {
		c.metrics.ProviderRequests.WithLabelValues(providerName, "empty").Inc()
	} else {
		c.metrics.ProviderRequests.WithLabelValues(providerName, "success").Inc()
	}
	return decoded.Results, nil
}

// pickCandidate filters to box-compliant results and keeps the provider's
// own ranking order.
func pickCandidate(results []result, box domain.BoundingBox, prov domain.Provenance) (domain.ResolvedLocation, bool, error) {
	var compliant []result
	for _, r := range results {
		if box.Contains(domain.Coordinate{Lat: r.Geometry.Lat, Lon: r.Geometry.Lng}) {
			compliant = append(compliant, r)
		}
	}
	if len(compliant) == 0 {
		return domain.ResolvedLocation{}, false, nil
	}

	loc := toLocation(compliant[0], prov)
	for _, alt := range compliant[1:] {
		if len(loc.Alternatives) == 2 {
			break
		}
		loc.Alternatives = append(loc.Alternatives, alt.Formatted)
	}
	return loc, true, nil
}

func toLocation(r result, prov domain.Provenance) domain.ResolvedLocation {
	return domain.ResolvedLocation{
		Coordinate:       domain.Coordinate{Lat: r.Geometry.Lat, Lon: r.Geometry.Lng},
		FormattedAddress: r.Formatted,
		Provenance:       prov,
		RawConfidence:    float64(r.Confidence),
		Components:       r.Components.toDomain(),
	}
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Confidence int        `json:"confidence"` // 0–10 ordinal
	Formatted  string     `json:"formatted"`
	Geometry   geometry   `json:"geometry"`
	Components components `json:"components"`
}

type geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type components struct {
	Category    string `json:"_category"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	Suburb      string `json:"suburb"`
	Road        string `json:"road"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
	State       string `json:"state"`
	Country     string `json:"country"`
}

func (c components) toDomain() domain.AddressComponents {
	out := domain.AddressComponents{}
	for key, v := range map[string]string{
		"category":     c.Category,
		"city":         c.City,
		"town":         c.Town,
		"village":      c.Village,
		"county":       c.County,
		"suburb":       c.Suburb,
		"road":         c.Road,
		"house_number": c.HouseNumber,
		"postcode":     c.Postcode,
		"state":        c.State,
		"country":      c.Country,
	} {
		if v != "" {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
