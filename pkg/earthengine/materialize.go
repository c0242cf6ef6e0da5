package earthengine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// computeRequest is the body of a value:compute call.
type computeRequest struct {
	Expression json.RawMessage `json:"expression"`
}

type computeResponse struct {
	Result json.RawMessage `json:"result"`
}

// renderRequest is the body of a thumbnails or maps call.
type renderRequest struct {
	Expression json.RawMessage `json:"expression"`
	FileFormat string          `json:"fileFormat"`
	Grid       *pixelGrid      `json:"grid,omitempty"`
}

type pixelGrid struct {
	Dimensions gridDimensions `json:"dimensions"`
}

type gridDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type renderResponse struct {
	Name string `json:"name"`
}

func (c *httpClient) ComputeValue(ctx context.Context, v Value) (json.RawMessage, error) {
	expr, err := Serialize(v.Expr())
	if err != nil {
		return nil, err
	}

	body, err := c.postJSON(ctx, "compute", c.projectURL("value:compute"), computeRequest{Expression: expr})
	if err != nil {
		return nil, err
	}

	var resp computeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "earthengine: compute decode response")
	}
	return resp.Result, nil
}

func (c *httpClient) ComputeNumber(ctx context.Context, v Value) (float64, error) {
	raw, err := c.ComputeValue(ctx, v)
	if err != nil {
		return 0, err
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, eris.Wrapf(err, "earthengine: compute expected a number, got %q", truncate(string(raw), 80))
	}
	return n, nil
}

func (c *httpClient) ComputeDictionary(ctx context.Context, v Value) (map[string]float64, error) {
	raw, err := c.ComputeValue(ctx, v)
	if err != nil {
		return nil, err
	}

	var entries map[string]*float64
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "earthengine: compute expected a dictionary, got %q", truncate(string(raw), 80))
	}

	out := make(map[string]float64, len(entries))
	for name, val := range entries {
		if val == nil {
			// Reductions over fully masked regions yield nulls.
			continue
		}
		out[name] = *val
	}
	return out, nil
}

func (c *httpClient) Thumbnail(ctx context.Context, img Image, spec ThumbnailSpec) (*Thumbnail, error) {
	rendered := img
	if len(spec.Vis.Bands) > 0 || len(spec.Vis.Palette) > 0 {
		rendered = img.Visualize(spec.Vis)
	}
	expr, err := Serialize(rendered.Expr())
	if err != nil {
		return nil, err
	}

	req := renderRequest{Expression: expr, FileFormat: fileFormat(spec.Format)}
	if spec.Dimensions > 0 {
		req.Grid = &pixelGrid{Dimensions: gridDimensions{Width: spec.Dimensions, Height: spec.Dimensions}}
	}

	body, err := c.postJSON(ctx, "thumbnail", c.projectURL("thumbnails"), req)
	if err != nil {
		return nil, err
	}

	var resp renderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "earthengine: thumbnail decode response")
	}
	if resp.Name == "" {
		return nil, eris.New("earthengine: thumbnail response missing name")
	}

	return &Thumbnail{
		Name: resp.Name,
		URL:  c.baseURL + "/v1/" + resp.Name + ":getPixels",
	}, nil
}

func (c *httpClient) MapTiles(ctx context.Context, img Image, vis VisParams) (*TileSet, error) {
	rendered := img
	if len(vis.Bands) > 0 || len(vis.Palette) > 0 {
		rendered = img.Visualize(vis)
	}
	expr, err := Serialize(rendered.Expr())
	if err != nil {
		return nil, err
	}

	body, err := c.postJSON(ctx, "map", c.projectURL("maps"), renderRequest{Expression: expr, FileFormat: "PNG"})
	if err != nil {
		return nil, err
	}

	var resp renderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "earthengine: map decode response")
	}
	if resp.Name == "" {
		return nil, eris.New("earthengine: map response missing name")
	}

	return &TileSet{
		Name:        resp.Name,
		URLTemplate: c.baseURL + "/v1/" + resp.Name + "/tiles/{z}/{x}/{y}",
	}, nil
}

func (c *httpClient) FetchPNG(ctx context.Context, url string) ([]byte, error) {
	body, status, err := c.do(ctx, "fetch", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body), Op: "fetch"}
	}
	return body, nil
}

func fileFormat(f string) string {
	switch strings.ToLower(f) {
	case "", "png":
		return "PNG"
	case "jpg", "jpeg":
		return "JPEG"
	default:
		return strings.ToUpper(f)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
