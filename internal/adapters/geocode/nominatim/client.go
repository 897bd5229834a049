package nominatim

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"safehaven/internal/geo"
	"safehaven/internal/platform/httpclient"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	DefaultTimeout = 5 * time.Second
)

// Config del cliente de geocoding.
// Nominatim pide un User-Agent identificable; sin él puede rechazar requests.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client geocodifica texto libre contra Nominatim (OpenStreetMap).
// Implementa geo.Strategy: se usa como primera estrategia del resolver,
// con la tabla de ciudades como fallback.
type Client struct {
	baseURL   string
	userAgent string
	http      *httpclient.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "safehaven/1.0"
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      httpclient.New(timeout),
	}
}

// NewClientWithTransport permite inyectar un transport (tests).
func NewClientWithTransport(cfg Config, tr http.RoundTripper) *Client {
	c := NewClient(cfg)
	c.http = httpclient.NewWithTransport(cfg.Timeout, tr)
	return c
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve busca la ubicación y acepta el primer match.
// Sin resultados => geo.ErrNoMatch. Timeout o upstream caído => error de
// red; el resolver pasa a la siguiente estrategia en ambos casos.
func (c *Client) Resolve(ctx context.Context, location string) (geo.Coordinates, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return geo.Coordinates{}, geo.ErrNoMatch
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", location)
	q.Set("limit", "1")
	q.Set("accept-language", "es")

	searchURL := c.baseURL + "/search?" + q.Encode()

	var results []searchResult
	headers := map[string]string{"User-Agent": c.userAgent}
	if err := c.http.DoJSON(ctx, http.MethodGet, searchURL, headers, nil, &results); err != nil {
		return geo.Coordinates{}, fmt.Errorf("nominatim search: %w", err)
	}

	if len(results) == 0 {
		return geo.Coordinates{}, geo.ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Coordinates{}, geo.ErrNoMatch
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Coordinates{}, geo.ErrNoMatch
	}

	coords := geo.Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		return geo.Coordinates{}, geo.ErrNoMatch
	}

	return coords, nil
}
