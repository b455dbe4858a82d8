package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/scsonic/nexavatar/shared/backoff"
	"github.com/scsonic/nexavatar/shared/httpclient"
)

// AssetFetcher supplies the pre-rendered animation assets for one avatar:
// the range table, the bounding-box table, base frames, chroma masks and
// phoneme overlays. Implementations must be safe for concurrent use.
type AssetFetcher interface {
	Ranges(ctx context.Context, avatar string) ([]Range, error)
	BoundingBoxes(ctx context.Context, avatar string) (map[int]BBox, error)
	Frame(ctx context.Context, avatar string, index int) (image.Image, error)
	Mask(ctx context.Context, avatar string, index int) (image.Image, error)
	Phoneme(ctx context.Context, avatar string, index int) (image.Image, error)
}

// assetRetry bounds retries for image and config fetches during preload:
// five attempts at a fixed one-second interval.
var assetRetry = backoff.Strategy{
	Delays: []time.Duration{
		time.Second,
		time.Second,
		time.Second,
		time.Second,
		time.Second,
	},
}

// preloadBatchSize limits concurrent image fetches during load.
const preloadBatchSize = 5

// HTTPAssets fetches assets from a static HTTP tree:
//
//	{base}/{avatar}/ranges.json          ordered list of [start, end] pairs
//	{base}/{avatar}/bbox.json            frame index -> [x1, x2, y1, y2]
//	{base}/{avatar}/full_imgs/{i:08}.png base frames
//	{base}/{avatar}/masks/{i:08}.png     chroma masks
//	{base}/{avatar}/phoneme/{i:05}.png   phoneme overlays
type HTTPAssets struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPAssets returns a fetcher rooted at baseURL.
func NewHTTPAssets(baseURL string) *HTTPAssets {
	return &HTTPAssets{
		BaseURL: baseURL,
		Client:  httpclient.New(),
	}
}

func (h *HTTPAssets) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (h *HTTPAssets) Ranges(ctx context.Context, avatar string) ([]Range, error) {
	body, err := h.get(ctx, "/"+avatar+"/ranges.json")
	if err != nil {
		return nil, fmt.Errorf("fetch range table: %w", err)
	}
	var pairs [][2]int
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("parse range table: %w", err)
	}
	ranges := make([]Range, len(pairs))
	for i, p := range pairs {
		ranges[i] = Range{Start: p[0], End: p[1]}
	}
	return ranges, nil
}

func (h *HTTPAssets) BoundingBoxes(ctx context.Context, avatar string) (map[int]BBox, error) {
	body, err := h.get(ctx, "/"+avatar+"/bbox.json")
	if err != nil {
		return nil, fmt.Errorf("fetch bbox table: %w", err)
	}
	var raw map[string][4]int
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse bbox table: %w", err)
	}
	boxes := make(map[int]BBox, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			slog.Warn("avatar: ignoring non-numeric bbox key", "key", k)
			continue
		}
		boxes[idx] = BBox{X1: v[0], X2: v[1], Y1: v[2], Y2: v[3]}
	}
	return boxes, nil
}

func (h *HTTPAssets) image(ctx context.Context, path string) (image.Image, error) {
	body, err := h.get(ctx, path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func (h *HTTPAssets) Frame(ctx context.Context, avatar string, index int) (image.Image, error) {
	return h.image(ctx, fmt.Sprintf("/%s/full_imgs/%08d.png", avatar, index))
}

func (h *HTTPAssets) Mask(ctx context.Context, avatar string, index int) (image.Image, error) {
	return h.image(ctx, fmt.Sprintf("/%s/masks/%08d.png", avatar, index))
}

func (h *HTTPAssets) Phoneme(ctx context.Context, avatar string, index int) (image.Image, error) {
	return h.image(ctx, fmt.Sprintf("/%s/phoneme/%05d.png", avatar, index))
}

// fetchFrameWithRetry wraps one frame fetch in the bounded fixed-backoff
// policy for asset loads.
func fetchFrameWithRetry(ctx context.Context, fetcher AssetFetcher, avatar string, index int) (image.Image, error) {
	var img image.Image
	err := backoff.Retry(ctx, assetRetry, func(ctx context.Context, attempt int) error {
		var err error
		img, err = fetcher.Frame(ctx, avatar, index)
		if err != nil && attempt > 1 {
			slog.Warn("avatar: frame fetch retry failed", "index", index, "attempt", attempt, "error", err)
		}
		return err
	})
	return img, err
}
