package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"roamfree/internal/models"
)

// MinQueryLength is the shortest query that is sent upstream.
const MinQueryLength = 3

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

const (
	defaultCacheSize = 1000
	resolveTimeout   = 15 * time.Second
)

// Prediction is one place-search suggestion
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"placeId"`
}

// PlaceSearch turns free text into predictions and predictions into coordinates
type PlaceSearch interface {
	Search(ctx context.Context, query string, limit int) ([]Prediction, error)
	Resolve(ctx context.Context, placeID string) (models.Coordinates, error)
}

// ErrPlaceResolution matches every *ErrPlaceResolutionFailed.
var ErrPlaceResolution = errors.New("place resolution failed")

// ErrPlaceResolutionFailed is returned when a place id cannot be turned into coordinates
type ErrPlaceResolutionFailed struct {
	PlaceID string
	Reason  string
}

func (e *ErrPlaceResolutionFailed) Error() string {
	return fmt.Sprintf("could not resolve place %s: %s", e.PlaceID, e.Reason)
}

func (e *ErrPlaceResolutionFailed) Is(target error) bool {
	return target == ErrPlaceResolution
}

// ErrSearchFailed is returned when the search endpoint cannot be queried
type ErrSearchFailed struct {
	Query  string
	Reason string
}

func (e *ErrSearchFailed) Error() string {
	return fmt.Sprintf("place search failed for %q: %s", e.Query, e.Reason)
}

// Option configures a Nominatim client
type Option func(*Nominatim)

// WithBaseURL points the client at another Nominatim instance
func WithBaseURL(baseURL string) Option {
	return func(n *Nominatim) { n.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(n *Nominatim) { n.httpClient = c }
}

// WithRateLimit sets the minimum interval between upstream requests
func WithRateLimit(interval time.Duration) Option {
	return func(n *Nominatim) { n.interval = interval }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(n *Nominatim) { n.logger = l }
}

// WithCacheSize caps how many resolved places are kept in memory
func WithCacheSize(size int) Option {
	return func(n *Nominatim) {
		if size > 0 {
			n.cacheSize = size
		}
	}
}

// WithUserAgent sets the User-Agent header Nominatim's usage policy requires
func WithUserAgent(ua string) Option {
	return func(n *Nominatim) { n.userAgent = ua }
}

// Nominatim implements PlaceSearch against the OpenStreetMap Nominatim API.
type Nominatim struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	interval    time.Duration
	rateLimiter *time.Ticker
	logger      *slog.Logger

	group     singleflight.Group
	cacheSize int
	resolved  *lru.Cache[string, models.Coordinates]
}

type nominatimPlace struct {
	OSMType     string `json:"osm_type"`
	OSMID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a client. Nominatim allows one request per second.
func NewNominatim(opts ...Option) *Nominatim {
	n := &Nominatim{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "RoamFree/1.0",
		interval:  time.Second,
		logger:    slog.Default(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	// lru.New only fails for non-positive sizes, which WithCacheSize rejects.
	n.resolved, _ = lru.New[string, models.Coordinates](n.cacheSize)
	n.rateLimiter = time.NewTicker(n.interval)
	return n
}

// Close stops the rate limiter
func (n *Nominatim) Close() {
	n.rateLimiter.Stop()
}

func (n *Nominatim) wait(ctx context.Context) error {
	select {
	case <-n.rateLimiter.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Nominatim) get(ctx context.Context, path string, query url.Values) ([]nominatimPlace, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}

	query.Set("format", "json")
	reqURL := fmt.Sprintf("%s%s?%s", n.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return places, nil
}

// Search returns up to limit predictions for query. Queries shorter than
// MinQueryLength return no predictions without calling upstream.
func (n *Nominatim) Search(ctx context.Context, query string, limit int) ([]Prediction, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []Prediction{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	n.logger.Debug("place search", "query", query, "limit", limit)
	places, err := n.get(ctx, "/search", url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	})
	if err != nil {
		n.logger.Error("place search failed", "query", query, "error", err)
		return nil, &ErrSearchFailed{Query: query, Reason: err.Error()}
	}

	predictions := make([]Prediction, 0, len(places))
	for _, p := range places {
		id, ok := placeID(p)
		if !ok {
			continue
		}
		// Remember coordinates so resolving a prediction we just served needs no round trip.
		if coords, err := parseCoords(p); err == nil {
			n.remember(id, coords)
		}
		predictions = append(predictions, Prediction{Description: p.DisplayName, PlaceID: id})
	}

	n.logger.Debug("place search response", "query", query, "results", len(predictions))
	return predictions, nil
}

// Resolve returns the coordinates of a place id produced by Search.
// Concurrent resolutions of the same id share one upstream request, which
// runs on its own deadline so one caller giving up does not fail the others.
func (n *Nominatim) Resolve(ctx context.Context, id string) (models.Coordinates, error) {
	id = strings.TrimSpace(id)
	if !validPlaceID(id) {
		return models.Coordinates{}, &ErrPlaceResolutionFailed{PlaceID: id, Reason: "malformed place id"}
	}
	if coords, ok := n.resolved.Get(id); ok {
		return coords, nil
	}

	ch := n.group.DoChan(id, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		places, err := n.get(lookupCtx, "/lookup", url.Values{"osm_ids": {id}})
		if err != nil {
			return nil, err
		}
		if len(places) == 0 {
			return nil, errors.New("no results found")
		}
		coords, err := parseCoords(places[0])
		if err != nil {
			return nil, err
		}
		n.remember(id, coords)
		return coords, nil
	})

	select {
	case <-ctx.Done():
		n.logger.Warn("place resolution abandoned", "place_id", id, "error", ctx.Err())
		return models.Coordinates{}, &ErrPlaceResolutionFailed{PlaceID: id, Reason: ctx.Err().Error()}
	case res := <-ch:
		if res.Err != nil {
			n.logger.Warn("place resolution failed", "place_id", id, "error", res.Err)
			return models.Coordinates{}, &ErrPlaceResolutionFailed{PlaceID: id, Reason: res.Err.Error()}
		}
		return res.Val.(models.Coordinates), nil
	}
}

func (n *Nominatim) remember(id string, c models.Coordinates) {
	n.resolved.Add(id, c)
}

// placeID encodes an OSM object as the lookup API expects it, e.g. "W5013364".
func placeID(p nominatimPlace) (string, bool) {
	if p.OSMID == 0 || p.OSMType == "" {
		return "", false
	}
	prefix := strings.ToUpper(p.OSMType[:1])
	if prefix != "N" && prefix != "W" && prefix != "R" {
		return "", false
	}
	return prefix + strconv.FormatInt(p.OSMID, 10), true
}

func validPlaceID(id string) bool {
	if len(id) < 2 {
		return false
	}
	switch id[0] {
	case 'N', 'W', 'R':
	default:
		return false
	}
	_, err := strconv.ParseInt(id[1:], 10, 64)
	return err == nil
}

func parseCoords(p nominatimPlace) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q", p.Lat)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q", p.Lon)
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}
