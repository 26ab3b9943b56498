package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

var censusURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"

const censusBenchmark = "Public_AR_Current"

// CensusProvider geocodes via the Census one-line address API. It only covers
// US addresses but needs no API key, which makes it a cheap fallback.
type CensusProvider struct {
	client *geocoder
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, censusURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}
	req.Header.Set("User-Agent", p.client.userAgent)

	resp, err := p.client.doWithRetries(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var cr censusResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}
	if len(cr.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: "census"}, nil
	}

	match := cr.Result.AddressMatches[0]
	return &Result{
		Latitude:    match.Coordinates.Y,
		Longitude:   match.Coordinates.X,
		Source:      "census",
		DisplayName: match.MatchedAddress,
		Matched:     true,
	}, nil
}
