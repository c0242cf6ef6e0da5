package tiles

import (
	"context"
	"encoding/json"

	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// mockEngine implements earthengine.Client for testing. Only the methods the
// proxy touches do anything.
type mockEngine struct {
	fetchFn     func(url string) ([]byte, error)
	fetchedURLs []string
}

func (m *mockEngine) ComputeValue(_ context.Context, _ earthengine.Value) (json.RawMessage, error) {
	return nil, nil
}

func (m *mockEngine) ComputeNumber(_ context.Context, _ earthengine.Value) (float64, error) {
	return 0, nil
}

func (m *mockEngine) ComputeDictionary(_ context.Context, _ earthengine.Value) (map[string]float64, error) {
	return nil, nil
}

func (m *mockEngine) Thumbnail(_ context.Context, _ earthengine.Image, _ earthengine.ThumbnailSpec) (*earthengine.Thumbnail, error) {
	return nil, nil
}

func (m *mockEngine) MapTiles(_ context.Context, _ earthengine.Image, _ earthengine.VisParams) (*earthengine.TileSet, error) {
	return nil, nil
}

func (m *mockEngine) FetchPNG(_ context.Context, url string) ([]byte, error) {
	m.fetchedURLs = append(m.fetchedURLs, url)
	if m.fetchFn != nil {
		return m.fetchFn(url)
	}
	return []byte("tile"), nil
}

func (m *mockEngine) Project() string {
	return "test-project"
}
