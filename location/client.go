// Package location wraps the third-party mapping collaborator behind
// capability interfaces so the application layer (and its tests) never call
// the provider directly.
package location

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrUpstream signals a mapping-provider failure; callers surface it as a
	// gateway error, never as their own fault.
	ErrUpstream = errors.New("location: upstream mapping service failure")
	// ErrNoResults signals a well-formed lookup that matched nothing.
	ErrNoResults = errors.New("location: no results")
	// ErrUnknownEmergencyType signals an unsupported nearby-search category.
	ErrUnknownEmergencyType = errors.New("location: unknown emergency type")
)

// Resolver turns coordinates into addresses and radio environments into
// coordinates.
type Resolver interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (Address, error)
	Geolocate(ctx context.Context, params GeolocateParams) (Coordinates, error)
}

// PlacesFinder searches for nearby services and their contact details.
type PlacesFinder interface {
	NearbyServices(ctx context.Context, latitude, longitude float64, emergencyType EmergencyType) ([]Place, error)
	PlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error)
}

// RouteFinder computes distances and turn-by-turn routes.
type RouteFinder interface {
	DistanceDuration(ctx context.Context, origins, destinations string) (Distance, error)
	Route(ctx context.Context, origin, destination string) (Route, error)
}

const (
	defaultMapsBaseURL      = "https://maps.googleapis.com"
	defaultGeolocateBaseURL = "https://www.googleapis.com"
	defaultHTTPTimeout      = 15 * time.Second
	nearbyRadiusMeters      = 5000
)

// Client implements Resolver, PlacesFinder and RouteFinder against the Google
// Maps REST surface.
type Client struct {
	httpClient       *http.Client
	apiKey           string
	mapsBaseURL      string
	geolocateBaseURL string
}

// NewClient creates a mapping client. The HTTP timeout bounds every call; no
// retries, the pollers upstream already re-query on an interval.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: defaultHTTPTimeout},
		apiKey:           apiKey,
		mapsBaseURL:      defaultMapsBaseURL,
		geolocateBaseURL: defaultGeolocateBaseURL,
	}
}

// WithHTTPClient overrides the transport, for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithBaseURLs points the client at alternate endpoints, for tests.
func (c *Client) WithBaseURLs(maps, geolocate string) *Client {
	c.mapsBaseURL = maps
	c.geolocateBaseURL = geolocate
	return c
}

// ReverseGeocode resolves a coordinate pair into address components.
func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (Address, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%s,%s", formatCoord(latitude), formatCoord(longitude)))
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.mapsBaseURL+"/maps/api/geocode/json?"+q.Encode())
	if err != nil {
		return Address{}, err
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "ZERO_RESULTS" {
		return Address{}, ErrNoResults
	}
	if status != "OK" {
		return Address{}, fmt.Errorf("%w: geocode status %s", ErrUpstream, status)
	}

	first := gjson.GetBytes(body, "results.0")
	if !first.Exists() {
		return Address{}, ErrNoResults
	}

	addr := Address{FormattedAddress: first.Get("formatted_address").String()}
	first.Get("address_components").ForEach(func(_, comp gjson.Result) bool {
		long := comp.Get("long_name").String()
		for _, t := range comp.Get("types").Array() {
			switch t.String() {
			case "locality":
				addr.City = long
			case "administrative_area_level_1":
				addr.State = comp.Get("short_name").String()
			case "country":
				addr.Country = long
			case "neighborhood":
				addr.Neighborhood = long
			case "sublocality":
				addr.Sublocality = long
			case "village":
				addr.Village = long
			}
		}
		return true
	})

	// Fall back to a broader area name when no locality was present.
	if addr.City == "" {
		first.Get("address_components").ForEach(func(_, comp gjson.Result) bool {
			for _, t := range comp.Get("types").Array() {
				if t.String() == "administrative_area_level_2" || t.String() == "postal_town" {
					addr.City = comp.Get("long_name").String()
					return false
				}
			}
			return true
		})
	}

	return addr, nil
}

// Geolocate estimates the caller's position from wifi/cell data, or IP alone.
func (c *Client) Geolocate(ctx context.Context, params GeolocateParams) (Coordinates, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location: marshal geolocate params: %w", err)
	}

	u := c.geolocateBaseURL + "/geolocation/v1/geolocate?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Coordinates{}, fmt.Errorf("location: build geolocate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return Coordinates{}, err
	}

	loc := gjson.GetBytes(body, "location")
	if !loc.Exists() {
		return Coordinates{}, fmt.Errorf("%w: geolocate response missing location", ErrUpstream)
	}

	return Coordinates{
		Latitude:  loc.Get("lat").Float(),
		Longitude: loc.Get("lng").Float(),
		Accuracy:  gjson.GetBytes(body, "accuracy").Float(),
	}, nil
}

// NearbyServices searches for services of the given emergency category within
// a fixed radius of the point.
func (c *Client) NearbyServices(ctx context.Context, latitude, longitude float64, emergencyType EmergencyType) ([]Place, error) {
	types, ok := emergencyType.placeTypes()
	if !ok {
		return nil, ErrUnknownEmergencyType
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%s,%s", formatCoord(latitude), formatCoord(longitude)))
	q.Set("radius", strconv.Itoa(nearbyRadiusMeters))
	q.Set("type", types)
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.mapsBaseURL+"/maps/api/place/nearbysearch/json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	status := gjson.GetBytes(body, "status").String()
	if status != "OK" && status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("%w: nearby search status %s", ErrUpstream, status)
	}

	var places []Place
	gjson.GetBytes(body, "results").ForEach(func(_, res gjson.Result) bool {
		places = append(places, Place{
			PlaceID:   res.Get("place_id").String(),
			Name:      res.Get("name").String(),
			Vicinity:  res.Get("vicinity").String(),
			Rating:    res.Get("rating").Float(),
			Latitude:  res.Get("geometry.location.lat").Float(),
			Longitude: res.Get("geometry.location.lng").Float(),
			Open:      res.Get("opening_hours.open_now").Bool(),
		})
		return true
	})

	return places, nil
}

// PlaceDetails fetches contact details for a single place.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "name,formatted_phone_number,website,rating,formatted_address,geometry")
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.mapsBaseURL+"/maps/api/place/details/json?"+q.Encode())
	if err != nil {
		return PlaceDetails{}, err
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "NOT_FOUND" || status == "ZERO_RESULTS" {
		return PlaceDetails{}, ErrNoResults
	}
	if status != "OK" {
		return PlaceDetails{}, fmt.Errorf("%w: place details status %s", ErrUpstream, status)
	}

	res := gjson.GetBytes(body, "result")
	return PlaceDetails{
		Name:      res.Get("name").String(),
		Phone:     res.Get("formatted_phone_number").String(),
		Website:   res.Get("website").String(),
		Rating:    res.Get("rating").Float(),
		Address:   res.Get("formatted_address").String(),
		Latitude:  res.Get("geometry.location.lat").Float(),
		Longitude: res.Get("geometry.location.lng").Float(),
	}, nil
}

// DistanceDuration computes the distance matrix between one origin and one
// destination.
func (c *Client) DistanceDuration(ctx context.Context, origins, destinations string) (Distance, error) {
	q := url.Values{}
	q.Set("origins", origins)
	q.Set("destinations", destinations)
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.mapsBaseURL+"/maps/api/distancematrix/json?"+q.Encode())
	if err != nil {
		return Distance{}, err
	}

	element := gjson.GetBytes(body, "rows.0.elements.0")
	if !element.Exists() {
		return Distance{}, ErrNoResults
	}

	dist := Distance{
		Distance: "Unknown",
		Duration: "Unknown",
		Status:   element.Get("status").String(),
	}
	if d := element.Get("distance.text"); d.Exists() {
		dist.Distance = d.String()
	}
	if d := element.Get("duration.text"); d.Exists() {
		dist.Duration = d.String()
	}
	for _, o := range gjson.GetBytes(body, "origin_addresses").Array() {
		dist.Origins = append(dist.Origins, o.String())
	}
	for _, d := range gjson.GetBytes(body, "destination_addresses").Array() {
		dist.Destinations = append(dist.Destinations, d.String())
	}

	return dist, nil
}

// Route fetches directions and flattens the first route's first leg into the
// shape clients render.
func (c *Client) Route(ctx context.Context, origin, destination string) (Route, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.mapsBaseURL+"/maps/api/directions/json?"+q.Encode())
	if err != nil {
		return Route{}, err
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "ZERO_RESULTS" {
		return Route{}, ErrNoResults
	}
	if status != "OK" {
		return Route{}, fmt.Errorf("%w: directions status %s", ErrUpstream, status)
	}

	leg := gjson.GetBytes(body, "routes.0.legs.0")
	if !leg.Exists() {
		return Route{}, ErrNoResults
	}

	route := Route{
		Distance:     leg.Get("distance.text").String(),
		Duration:     leg.Get("duration.text").String(),
		StartAddress: leg.Get("start_address").String(),
		EndAddress:   leg.Get("end_address").String(),
		Polyline:     gjson.GetBytes(body, "routes.0.overview_polyline.points").String(),
	}
	leg.Get("steps").ForEach(func(_, step gjson.Result) bool {
		route.Steps = append(route.Steps, RouteStep{
			Distance:     step.Get("distance.text").String(),
			Duration:     step.Get("duration.text").String(),
			Instructions: step.Get("html_instructions").String(),
		})
		return true
	})

	return route, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("location: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
