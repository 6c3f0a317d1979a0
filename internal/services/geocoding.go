package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Locality is the city/district metadata attached to a contribution.
type Locality struct {
	City     string
	District string
}

// Performs reverse geocoding using the OpenStreetMap Nominatim
// API with caching and rate limiting. Fills the optional city/district
// fields of newly created contributions.
type GeocodingService struct {
	cache       map[string]Locality
	cacheMutex  sync.RWMutex
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Models the subset of Nominatim’s response that we care about
// (city/town/village + suburb/district/county).
type NominatimResponse struct {
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Suburb       string `json:"suburb"`
		CityDistrict string `json:"city_district"`
		County       string `json:"county"`
	} `json:"address"`
}

// Returns a fully configured geocoder.
// It includes:
//   - in-memory cache
//   - shared HTTP client
//   - Nominatim-compliant rate limiting (1 request/sec)
func NewGeocodingService() *GeocodingService {
	return &GeocodingService{
		cache:      make(map[string]Locality),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(
			rate.Limit(1), // 1 request/sec
			1,             // burst size
		),
	}
}

// Performs a coordinate→locality lookup.
// The function:
//  1. checks the in-memory cache (key rounded to avoid fragmentation)
//  2. applies rate limiting (required by Nominatim)
//  3. calls the Nominatim API
//  4. extracts city + district
//  5. caches & returns the result
func (g *GeocodingService) ReverseGeocode(ctx context.Context, lat, lng float64) (Locality, error) {
	log.Printf("[Geocode] Reverse geocoding %.4f,%.4f...", lat, lng)

	key := fmt.Sprintf("%.4f,%.4f", lat, lng)

	// First check: read lock
	g.cacheMutex.RLock()
	if cached, ok := g.cache[key]; ok {
		g.cacheMutex.RUnlock()
		return cached, nil
	}
	g.cacheMutex.RUnlock()

	// Rate limit before making API call
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return Locality{}, err
	}

	// Fetch from API
	result, err := g.fetchLocality(ctx, lat, lng)
	if err != nil {
		return Locality{}, err
	}

	// Double-check cache before writing (another goroutine might have set it)
	g.cacheMutex.Lock()
	if cached, ok := g.cache[key]; ok {
		g.cacheMutex.Unlock()
		return cached, nil
	}
	g.cache[key] = result
	g.cacheMutex.Unlock()

	return result, nil
}

// Performs the actual HTTP request and parses the response.
func (g *GeocodingService) fetchLocality(ctx context.Context, lat, lng float64) (Locality, error) {
	url := fmt.Sprintf(
		"https://nominatim.openstreetmap.org/reverse?format=json&lat=%f&lon=%f&zoom=14&addressdetails=1",
		lat, lng,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Locality{}, err
	}

	req.Header.Set("User-Agent", "GreenAlgeria")
	req.Header.Set("Accept-Language", "ar,fr")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Locality{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Locality{}, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Locality{}, err
	}

	var data NominatimResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Locality{}, err
	}

	return g.extractLocality(data), nil
}

// Chooses the most specific available locality from the response.
func (g *GeocodingService) extractLocality(n NominatimResponse) Locality {
	return Locality{
		City: firstNonEmpty(
			n.Address.City,
			n.Address.Town,
			n.Address.Village,
		),
		District: firstNonEmpty(
			n.Address.Suburb,
			n.Address.CityDistrict,
			n.Address.County,
		),
	}
}

// Returns the first non-empty string in the list.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
