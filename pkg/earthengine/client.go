// Package earthengine provides a client for a remote geospatial compute
// service speaking the Earth Engine v1 REST dialect. Expressions describing
// collection filtering, band math and compositing are assembled locally and
// evaluated remotely; the package never implements any raster algorithm
// itself.
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/terralens/landsat-dash/internal/resilience"
)

const defaultBaseURL = "https://earthengine.googleapis.com"

// Client defines the engine operations the dashboard needs: synchronous
// value computation, thumbnail generation, and map-tile session creation.
type Client interface {
	// ComputeValue evaluates an expression and returns the raw result JSON.
	ComputeValue(ctx context.Context, v Value) (json.RawMessage, error)
	// ComputeNumber evaluates an expression expected to yield a number.
	ComputeNumber(ctx context.Context, v Value) (float64, error)
	// ComputeDictionary evaluates an expression expected to yield a mapping
	// of band/property names to numbers. Null entries are omitted.
	ComputeDictionary(ctx context.Context, v Value) (map[string]float64, error)
	// Thumbnail registers a rendered thumbnail for the image and returns its
	// name and pixel URL.
	Thumbnail(ctx context.Context, img Image, spec ThumbnailSpec) (*Thumbnail, error)
	// MapTiles registers a tiled map rendering of the image and returns the
	// tile-URL template.
	MapTiles(ctx context.Context, img Image, vis VisParams) (*TileSet, error)
	// FetchPNG downloads rendered pixels (thumbnail or tile) from the engine.
	FetchPNG(ctx context.Context, url string) ([]byte, error)
	// Project returns the cloud project the client is bound to.
	Project() string
}

// ThumbnailSpec controls thumbnail rasterization.
type ThumbnailSpec struct {
	Vis        VisParams
	Dimensions int    // longest side in pixels; engine default when zero
	Format     string // "png" (default) or "jpg"
}

// Thumbnail is a registered server-side thumbnail rendering.
type Thumbnail struct {
	Name string // engine resource name, e.g. projects/p/thumbnails/abc
	URL  string // direct pixel URL
}

// TileSet is a registered server-side tiled rendering.
type TileSet struct {
	Name        string // engine resource name, e.g. projects/p/maps/abc
	URLTemplate string // template with {z}/{x}/{y} placeholders
}

// TileURL expands the template for one tile.
func (t *TileSet) TileURL(z, x, y int) string {
	s := strings.Replace(t.URLTemplate, "{z}", strconv.Itoa(z), 1)
	s = strings.Replace(s, "{x}", strconv.Itoa(x), 1)
	s = strings.Replace(s, "{y}", strconv.Itoa(y), 1)
	return s
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the engine endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the authenticated HTTP client. Intended for tests;
// the replacement is used as-is with no token injection.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithProject overrides the cloud project from the credentials.
func WithProject(project string) Option {
	return func(c *httpClient) {
		c.project = project
	}
}

// WithRateLimit caps outbound engine requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL string
	project string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an engine client authenticated as the given service
// account. The OAuth2 transport refreshes tokens transparently for the
// lifetime of the process.
func NewClient(creds *Credentials, opts ...Option) (Client, error) {
	c := &httpClient{
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(10, 1),
	}
	if creds != nil {
		c.project = creds.ProjectID
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		if creds == nil {
			return nil, eris.New("earthengine: credentials are required")
		}
		jwtCfg, err := google.JWTConfigFromJSON(creds.raw, ScopeEarthEngine)
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: build JWT config")
		}
		c.http = jwtCfg.Client(context.Background())
		c.http.Timeout = 60 * time.Second
	}
	if c.project == "" {
		return nil, eris.New("earthengine: project is required")
	}
	return c, nil
}

func (c *httpClient) Project() string { return c.project }

// engineResponse is one terminal HTTP exchange. Transient statuses never
// reach it; they surface as retryable APIErrors inside do.
type engineResponse struct {
	body   []byte
	status int
}

// do executes one engine request with rate limiting and exponential backoff
// on transient failures. A fresh request is built per attempt so request
// bodies replay correctly. Non-transient statuses (404 included) are returned
// to the caller, not treated as errors.
func (c *httpClient) do(ctx context.Context, op, method, url string, payload []byte) ([]byte, int, error) {
	policy := resilience.Policy{
		Attempts:  3,
		BaseDelay: 1 * time.Second,
		OnRetry:   resilience.LogRetries("earthengine", op),
	}

	resp, err := resilience.Retry(ctx, policy, func(ctx context.Context) (engineResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return engineResponse{}, eris.Wrapf(err, "earthengine: %s rate limit wait", op)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return engineResponse{}, eris.Wrapf(err, "earthengine: %s create request", op)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return engineResponse{}, eris.Wrapf(err, "earthengine: %s request failed", op)
		}

		respBody, readErr := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if readErr != nil {
			return engineResponse{}, eris.Wrapf(readErr, "earthengine: %s read response", op)
		}

		if resilience.IsTransientStatus(httpResp.StatusCode) {
			return engineResponse{}, &APIError{StatusCode: httpResp.StatusCode, Body: string(respBody), Op: op}
		}
		return engineResponse{body: respBody, status: httpResp.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.body, resp.status, nil
}

// postJSON marshals body, posts it, and enforces a 200 response.
func (c *httpClient) postJSON(ctx context.Context, op, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrapf(err, "earthengine: %s marshal request", op)
	}

	respBody, status, err := c.do(ctx, op, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(respBody), Op: op}
	}
	return respBody, nil
}

func (c *httpClient) projectURL(resource string) string {
	return fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, c.project, resource)
}
