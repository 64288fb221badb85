package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/httpx"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/ports"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultBaseURL = "https://maps.googleapis.com"

// Fields requested from the details endpoint.
const detailFields = "name,formatted_address,international_phone_number,formatted_phone_number,geometry"

type Config struct {
	APIKey  string
	BaseURL string
	Limit   int
	Radius  domain.RadiusSchedule
	Timeout time.Duration
	// Concurrent details requests.
	DetailWorkers int
}

// Finder looks hospitals up in the Google Places web service.
type Finder struct {
	cfg    Config
	client *httpx.Client
	cache  ports.PlaceCache
}

// NewFinder builds a Finder. cache may be nil.
func NewFinder(cfg Config, cache ports.PlaceCache) (*Finder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("places finder: missing api key")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("places finder: limit must be positive, got %d", cfg.Limit)
	}
	if len(cfg.Radius.Radii()) == 0 {
		return nil, errors.New("places finder: empty radius schedule")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.DetailWorkers <= 0 {
		cfg.DetailWorkers = 4
	}

	return &Finder{cfg: cfg, client: httpx.NewClient(cfg.Timeout), cache: cache}, nil
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location *latLng `json:"location"`
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Geometry geometry `json:"geometry"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                     string   `json:"name"`
		FormattedAddress         string   `json:"formatted_address"`
		InternationalPhoneNumber string   `json:"international_phone_number"`
		FormattedPhoneNumber     string   `json:"formatted_phone_number"`
		Geometry                 geometry `json:"geometry"`
	} `json:"result"`
}

type candidate struct {
	placeID  string
	name     string
	vicinity string
	location domain.Coordinates
	distance float64
}

// FindHospitals searches outward along the radius schedule until something
// is found, keeps the nearest few, enriches them with contact details and
// returns the closest Limit, nearest first.
func (f *Finder) FindHospitals(ctx context.Context, at domain.Coordinates) (_ []domain.Hospital, err error) {
	defer obs.Time(ctx, "places.FindHospitals")(&err)

	var found []candidate
	for _, radius := range f.cfg.Radius.Radii() {
		found, err = f.nearby(ctx, at, radius)
		if err != nil {
			return nil, fmt.Errorf("nearby search radius=%.0f: %w", radius, err)
		}
		if len(found) > 0 {
			break
		}
		log.Debug().Float64("radius_m", radius).Msg("no hospitals within radius, expanding")
	}
	if len(found) == 0 {
		return []domain.Hospital{}, nil
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].distance < found[j].distance })
	if n := max(f.cfg.Limit, 3) * 2; len(found) > n {
		found = found[:n]
	}

	details, err := f.details(ctx, found)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Hospital, 0, len(found))
	for _, c := range found {
		loc := c.location
		dist := c.distance
		h := domain.Hospital{
			Name:           c.name,
			Address:        c.vicinity,
			Location:       &loc,
			DistanceMeters: &dist,
		}
		if d, ok := details[c.placeID]; ok {
			if d.Address != "" {
				h.Address = d.Address
			}
			h.Phone = d.Phone
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceMeters < *out[j].DistanceMeters })
	if len(out) > f.cfg.Limit {
		out = out[:f.cfg.Limit]
	}
	return out, nil
}

func (f *Finder) nearby(ctx context.Context, at domain.Coordinates, radius float64) ([]candidate, error) {
	q := url.Values{}
	q.Set("location", strconv.FormatFloat(at.Lat, 'f', -1, 64)+","+strconv.FormatFloat(at.Lon, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radius, 'f', 0, 64))
	q.Set("type", "hospital")
	q.Set("key", f.cfg.APIKey)

	var decoded nearbyResponse
	if err := f.client.GetJSON(ctx, f.cfg.BaseURL+"/maps/api/place/nearbysearch/json", q, &decoded); err != nil {
		return nil, err
	}

	switch decoded.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("places status %s: %s", decoded.Status, decoded.ErrorMessage)
	}

	out := make([]candidate, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Geometry.Location == nil {
			continue
		}
		loc := domain.Coordinates{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng}
		out = append(out, candidate{
			placeID:  r.PlaceID,
			name:     r.Name,
			vicinity: r.Vicinity,
			location: loc,
			distance: at.DistanceMeters(loc),
		})
	}
	return out, nil
}

// details resolves contact details for the shortlist, from the cache first.
// A place whose details cannot be fetched is simply left out of the map.
func (f *Finder) details(ctx context.Context, found []candidate) (map[string]ports.PlaceDetails, error) {
	ids := make([]string, 0, len(found))
	for _, c := range found {
		if c.placeID != "" {
			ids = append(ids, c.placeID)
		}
	}

	out := make(map[string]ports.PlaceDetails, len(ids))
	if f.cache != nil {
		cached, err := f.cache.GetMany(ctx, ids)
		if err != nil {
			log.Warn().Err(err).Msg("place cache read failed")
		}
		for id, d := range cached {
			out[id] = d
		}
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string]ports.PlaceDetails)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.DetailWorkers)
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		id := id
		g.Go(func() error {
			d, err := f.placeDetails(gctx, id)
			if err != nil {
				log.Warn().Err(err).Str("place_id", id).Msg("place details unavailable")
				return nil
			}
			mu.Lock()
			fetched[id] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for id, d := range fetched {
		out[id] = d
	}
	if f.cache != nil && len(fetched) > 0 {
		if err := f.cache.PutMany(ctx, fetched); err != nil {
			log.Warn().Err(err).Msg("place cache write failed")
		}
	}
	return out, nil
}

func (f *Finder) placeDetails(ctx context.Context, placeID string) (ports.PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", detailFields)
	q.Set("key", f.cfg.APIKey)

	var decoded detailsResponse
	if err := f.client.GetJSON(ctx, f.cfg.BaseURL+"/maps/api/place/details/json", q, &decoded); err != nil {
		return ports.PlaceDetails{}, err
	}
	if decoded.Status != "OK" {
		return ports.PlaceDetails{}, fmt.Errorf("details status %s", decoded.Status)
	}

	r := decoded.Result
	d := ports.PlaceDetails{
		Name:    r.Name,
		Address: r.FormattedAddress,
		Phone:   r.InternationalPhoneNumber,
	}
	if d.Phone == "" {
		d.Phone = r.FormattedPhoneNumber
	}
	if r.Geometry.Location != nil {
		d.Location = &domain.Coordinates{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng}
	}
	return d, nil
}
