package avatar

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clip is one utterance's audio. Implementations mirror the lifecycle the
// engine keys off: metadata becomes available, playback starts, playback
// finishes, or something fails. Callbacks fire asynchronously on the
// clip's own goroutines, never from inside the caller's locks.
type Clip interface {
	// Load sets the clip source (a base64 data URL or raw URL). Metadata
	// parsing happens asynchronously; OnReady fires when the duration is
	// known.
	Load(src string)
	// Duration is valid once OnReady has fired.
	Duration() time.Duration
	// Play begins playback. It is a no-op before metadata is ready.
	Play()
	// Pause halts playback and rewinds to the start.
	Pause()
	OnReady(fn func())
	OnPlay(fn func())
	OnEnded(fn func())
	OnError(fn func(error))
}

// NewClipFunc constructs a fresh Clip per session.
type NewClipFunc func() Clip

// wavClip is the default Clip. It decodes a WAV data URL for its duration
// and models playback with timers: OnPlay fires when Play is accepted and
// OnEnded after the clip's duration elapses. Hosts that route audio to a
// real output device supply their own Clip implementation.
type wavClip struct {
	mu       sync.Mutex
	duration time.Duration
	ready    bool
	playing  bool
	timer    *time.Timer

	onReady func()
	onPlay  func()
	onEnded func()
	onError func(error)
}

// NewWAVClip returns the default timer-driven clip implementation.
func NewWAVClip() Clip {
	return &wavClip{}
}

func (c *wavClip) OnReady(fn func())      { c.mu.Lock(); c.onReady = fn; c.mu.Unlock() }
func (c *wavClip) OnPlay(fn func())       { c.mu.Lock(); c.onPlay = fn; c.mu.Unlock() }
func (c *wavClip) OnEnded(fn func())      { c.mu.Lock(); c.onEnded = fn; c.mu.Unlock() }
func (c *wavClip) OnError(fn func(error)) { c.mu.Lock(); c.onError = fn; c.mu.Unlock() }

func (c *wavClip) Load(src string) {
	go func() {
		data, err := decodeAudioSource(src)
		if err == nil {
			var d time.Duration
			d, err = wavDuration(data)
			if err == nil {
				c.mu.Lock()
				c.duration = d
				c.ready = true
				fn := c.onReady
				c.mu.Unlock()
				if fn != nil {
					fn()
				}
				return
			}
		}
		c.mu.Lock()
		fn := c.onError
		c.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}()
}

func (c *wavClip) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *wavClip) Play() {
	c.mu.Lock()
	if !c.ready || c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = true
	d := c.duration
	onPlay := c.onPlay
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		c.playing = false
		fn := c.onEnded
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	c.mu.Unlock()

	if onPlay != nil {
		go onPlay()
	}
}

func (c *wavClip) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// decodeAudioSource accepts a base64 data URL or bare base64 payload.
func decodeAudioSource(src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("empty audio source")
	}
	if i := strings.Index(src, ";base64,"); i >= 0 {
		src = src[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return data, nil
}

// wavDuration walks the RIFF chunk list and derives the clip length from
// the fmt chunk's byte rate and the data chunk's size.
func wavDuration(data []byte) (time.Duration, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE payload")
	}

	var byteRate uint32
	var dataLen uint32
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			dataLen = size
		}
		// Chunks are word-aligned.
		off = body + int(size)
		if size%2 == 1 {
			off++
		}
	}

	if byteRate == 0 || dataLen == 0 {
		return 0, errors.New("missing fmt or data chunk")
	}
	return time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second)), nil
}
