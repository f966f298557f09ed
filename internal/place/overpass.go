package place

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/localgroup/localgroup-server/internal/model"
)

// OverpassClient queries the Overpass API for amenities around a point.
// It is strictly best-effort: retries with exponential backoff, and a
// circuit breaker keeps a flapping upstream from stalling nearby lookups.
type OverpassClient struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewOverpassClient(apiURL string, timeout time.Duration) *OverpassClient {
	return &OverpassClient{
		url:  apiURL,
		http: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "overpass",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		ID   int64             `json:"id"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

func (c *OverpassClient) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*model.Place, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:10];node(around:%.0f,%f,%f)["amenity"~"cafe|restaurant|library"];out body 50;`,
		radiusMeters, lat, lng)

	res, err := c.breaker.Execute(func() (any, error) {
		var body []byte
		op := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
				strings.NewReader(url.Values{"data": {query}}.Encode()))
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("overpass status %d", resp.StatusCode)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		}
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = 15 * time.Second
		if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	var parsed overpassResponse
	if err := json.Unmarshal(res.([]byte), &parsed); err != nil {
		return nil, err
	}

	out := make([]*model.Place, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		out = append(out, &model.Place{
			Name:            name,
			Category:        categoryFromAmenity(el.Tags["amenity"]),
			Latitude:        el.Lat,
			Longitude:       el.Lon,
			ExternalPlaceID: fmt.Sprintf("osm:%s/%d", el.Type, el.ID),
			Source:          model.SourceMap,
		})
	}
	return out, nil
}

func categoryFromAmenity(amenity string) model.PlaceCategory {
	switch amenity {
	case "cafe":
		return model.CategoryCafe
	case "restaurant":
		return model.CategoryRestaurant
	case "library":
		return model.CategoryLibrary
	default:
		return model.CategoryOther
	}
}
