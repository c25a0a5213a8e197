package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roamfree/internal/database"
	"roamfree/internal/models"
)

// DefaultBaseURL is the public OSRM demo server
const DefaultBaseURL = "https://router.project-osrm.org"

// maxOSRMCoordinates is the maximum number of coordinates OSRM public API accepts
const maxOSRMCoordinates = 80

// Estimator measures the walking distance of a route
type Estimator interface {
	// RouteDistance returns meters along points in visit order.
	RouteDistance(ctx context.Context, points []models.Coordinates) (float64, error)
}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("distance estimation disabled")

// ErrDistanceCalculationFailed is returned when the OSRM API fails
type ErrDistanceCalculationFailed struct {
	Points int
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

// Disabled never estimates anything
type Disabled struct{}

func (Disabled) RouteDistance(ctx context.Context, points []models.Coordinates) (float64, error) {
	return 0, ErrDisabled
}

// Option configures an OSRM estimator
type Option func(*OSRM)

// WithBaseURL points the estimator at another OSRM server
func WithBaseURL(baseURL string) Option {
	return func(o *OSRM) { o.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *OSRM) { o.httpClient = c }
}

// WithCache stores computed distances in kv
func WithCache(kv database.KV) Option {
	return func(o *OSRM) { o.cache = kv }
}

// WithProfile selects the OSRM profile (foot, bike, car)
func WithProfile(profile string) Option {
	return func(o *OSRM) { o.profile = profile }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *OSRM) { o.logger = l }
}

// OSRM estimates distances with the OSRM route service.
type OSRM struct {
	baseURL    string
	profile    string
	httpClient *http.Client
	cache      database.KV
	logger     *slog.Logger
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// NewOSRM creates an estimator for walking routes
func NewOSRM(opts ...Option) *OSRM {
	o := &OSRM{
		baseURL: DefaultBaseURL,
		profile: "foot",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OSRM) RouteDistance(ctx context.Context, points []models.Coordinates) (float64, error) {
	if len(points) < 2 {
		return 0, nil
	}
	if len(points) > maxOSRMCoordinates {
		return 0, &ErrDistanceCalculationFailed{
			Points: len(points),
			Reason: fmt.Sprintf("too many points (max %d)", maxOSRMCoordinates),
		}
	}

	key := cacheKey(o.profile, points)
	if meters, ok := o.cached(ctx, key); ok {
		return meters, nil
	}

	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	queryURL := fmt.Sprintf("%s/route/v1/%s/%s?overview=false", o.baseURL, o.profile, strings.Join(coords, ";"))

	o.logger.Debug("osrm route request", "points", len(points))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return 0, &ErrDistanceCalculationFailed{Points: len(points), Reason: err.Error()}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.logger.Warn("osrm request failed", "points", len(points), "error", err)
		return 0, &ErrDistanceCalculationFailed{Points: len(points), Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		o.logger.Warn("osrm error response", "points", len(points), "status", resp.StatusCode)
		return 0, &ErrDistanceCalculationFailed{
			Points: len(points),
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var osrmResp osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		return 0, &ErrDistanceCalculationFailed{Points: len(points), Reason: err.Error()}
	}
	if osrmResp.Code != "Ok" || len(osrmResp.Routes) == 0 {
		return 0, &ErrDistanceCalculationFailed{
			Points: len(points),
			Reason: fmt.Sprintf("OSRM error: %s %s", osrmResp.Code, osrmResp.Message),
		}
	}

	meters := osrmResp.Routes[0].Distance
	o.store(ctx, key, meters)
	o.logger.Debug("osrm route response", "points", len(points), "meters", meters)
	return meters, nil
}

func (o *OSRM) cached(ctx context.Context, key string) (float64, bool) {
	if o.cache == nil {
		return 0, false
	}
	data, err := o.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			o.logger.Warn("distance cache read failed", "error", err)
		}
		return 0, false
	}
	meters, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false
	}
	return meters, true
}

func (o *OSRM) store(ctx context.Context, key string, meters float64) {
	if o.cache == nil {
		return
	}
	// A cache write failure only costs a future round trip.
	if err := o.cache.Set(ctx, key, []byte(strconv.FormatFloat(meters, 'f', 1, 64))); err != nil {
		o.logger.Warn("distance cache write failed", "error", err)
	}
}

// roundCoordinate rounds to 5 decimal places (~1m precision)
func roundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

func cacheKey(profile string, points []models.Coordinates) string {
	var b strings.Builder
	b.WriteString("distance:")
	b.WriteString(profile)
	for _, p := range points {
		fmt.Fprintf(&b, ";%.5f,%.5f", roundCoordinate(p.Lat), roundCoordinate(p.Lng))
	}
	return b.String()
}
