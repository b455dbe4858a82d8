// Package mediaproto defines the wire format spoken with the remote
// rendering service: one JSON request per utterance, then a stream of
// incremental JSON messages carrying overlay images, audio and motion
// metadata.
package mediaproto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

const (
	// StatusProcessing marks an incremental message; any media fields may
	// be present.
	StatusProcessing = "processing"
	// StatusCompleted is the stream's final message.
	StatusCompleted = "completed"
)

// DefaultSegmentHeight is the fixed height of each slice in a vertically
// stacked sprite sheet.
const DefaultSegmentHeight = 160

// ChatMessage is one turn of conversation history forwarded to the
// rendering service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SpeakPayload is the request sent once the connection opens.
type SpeakPayload struct {
	FrameIndex int           `json:"frame_index"`
	Text       string        `json:"text"`
	Avatar     string        `json:"avatar"`
	RangeIDs   []int         `json:"rangeIds"`
	Messages   []ChatMessage `json:"messages,omitempty"`
}

// StreamMessage is one incremental message from the rendering service.
// All media fields are optional; Wav is honored only on its first
// occurrence within a stream.
type StreamMessage struct {
	Status    string   `json:"status"`
	Pic       string   `json:"pic,omitempty"`
	Pics      []string `json:"pics,omitempty"`
	VPic      string   `json:"vpic,omitempty"`
	Text      string   `json:"text,omitempty"`
	Wav       string   `json:"wav,omitempty"`
	BnfBlocks int      `json:"bnfblocks,omitempty"`
	Result    *Result  `json:"result,omitempty"`
}

// Result carries the completed message's diagnostic fields. None of them
// affect playback.
type Result struct {
	Azure      string `json:"azure,omitempty"`
	Wenet      string `json:"wenet,omitempty"`
	Munet      string `json:"munet,omitempty"`
	WorkerName string `json:"workername,omitempty"`
}

// DecodeImage decodes an encoded image delivered as a base64 data URL
// (or bare base64 payload).
func DecodeImage(src string) (image.Image, error) {
	data, err := DecodePayload(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecodePayload strips an optional data-URL prefix and decodes base64.
func DecodePayload(src string) ([]byte, error) {
	if i := strings.Index(src, ";base64,"); i >= 0 {
		src = src[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}

// SliceSprite cuts a vertically stacked sprite sheet into individual
// segments of the given height, top to bottom. A trailing partial segment
// is discarded.
func SliceSprite(sheet image.Image, segHeight int) []image.Image {
	if segHeight <= 0 {
		segHeight = DefaultSegmentHeight
	}
	bounds := sheet.Bounds()
	n := bounds.Dy() / segHeight
	segments := make([]image.Image, 0, n)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}

	for i := 0; i < n; i++ {
		rect := image.Rect(bounds.Min.X, bounds.Min.Y+i*segHeight, bounds.Max.X, bounds.Min.Y+(i+1)*segHeight)
		if si, ok := sheet.(subImager); ok {
			segments = append(segments, si.SubImage(rect))
			continue
		}
		segments = append(segments, cropCopy(sheet, rect))
	}
	return segments
}

func cropCopy(src image.Image, rect image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.Set(x, y, src.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}
