package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geocoder"
	"github.com/pkg/errors"
)

// Client resolves coordinates through the Google Geocoding API.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	httpc    *http.Client
}

func New(baseURL, apiKey, language string) *Client {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	if language == "" {
		language = "ar"
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		language: language,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type geocodeResp struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string             `json:"formatted_address"`
		AddressComponents []addressComponent `json:"address_components"`
	} `json:"results"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (geocoder.Address, error) {
	if c.apiKey == "" {
		return geocoder.Address{}, errors.New("geocoding api key is not set")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return geocoder.Address{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/maps/api/geocode/json"
	q := u.Query()
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("key", c.apiKey)
	q.Set("language", c.language)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return geocoder.Address{}, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return geocoder.Address{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return geocoder.Address{}, fmt.Errorf("geocoding http %d", resp.StatusCode)
	}

	var rb geocodeResp
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return geocoder.Address{}, errors.Wrap(err, "decode")
	}
	if rb.Status != "OK" || len(rb.Results) == 0 {
		return geocoder.Address{}, fmt.Errorf("geocoding status %q: %s", rb.Status, rb.ErrorMessage)
	}

	first := rb.Results[0]
	out := geocoder.Address{FormattedAddress: first.FormattedAddress}
	var region string
	for _, comp := range first.AddressComponents {
		switch {
		case hasType(comp.Types, "locality"):
			out.City = comp.LongName
		case hasType(comp.Types, "administrative_area_level_1"):
			region = comp.LongName
		case hasType(comp.Types, "country"):
			out.Country = comp.LongName
		}
	}
	if out.City == "" {
		out.City = region
	}
	return out, nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
