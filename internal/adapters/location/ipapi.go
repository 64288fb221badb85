package location

import (
	"context"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/httpx"
	"sos-dispatch-service/internal/platform/obs"
	"strings"
	"time"
)

const DefaultIPAPIBaseURL = "https://ipapi.co"

// IPAPI approximates the caller's position from its public IP address.
type IPAPI struct {
	client  *httpx.Client
	baseURL string
}

type ipapiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

func NewIPAPI(baseURL string, timeout time.Duration) *IPAPI {
	if baseURL == "" {
		baseURL = DefaultIPAPIBaseURL
	}
	return &IPAPI{
		client:  httpx.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *IPAPI) GetLocation(ctx context.Context) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ipapi.GetLocation")(&err)

	var decoded ipapiResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/json/", nil, &decoded); err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.Coordinates{}, err
		}
		return domain.Coordinates{}, fmt.Errorf("ip lookup: %v: %w", err, domain.ErrLocationUnavailable)
	}

	if decoded.Error {
		return domain.Coordinates{}, fmt.Errorf("ip lookup: %s: %w", decoded.Reason, domain.ErrLocationUnavailable)
	}
	if decoded.Latitude == nil || decoded.Longitude == nil {
		return domain.Coordinates{}, fmt.Errorf("ip lookup: no coordinates: %w", domain.ErrLocationUnavailable)
	}

	c := domain.Coordinates{Lat: *decoded.Latitude, Lon: *decoded.Longitude}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("ip lookup: %v: %w", err, domain.ErrLocationUnavailable)
	}
	return c, nil
}
