// Package avatar implements the playback synchronization engine for a
// pre-rendered talking-head avatar: a fixed-rate frame clock drives an
// idle loop indefinitely, speech sessions stream overlay images and audio
// from a remote rendering service, and a playback gate splices the speech
// track in at the idle loop's restart point so the transition stays
// visually seamless.
package avatar

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultFPS            = 15
	DefaultGateTolerance  = 2
	DefaultInterruptGrace = 500 * time.Millisecond
	DefaultCanvasWidth    = 540
	DefaultCanvasHeight   = 960
	DefaultPhonemeCount   = 128

	defaultPhonemeFrameDuration = 100 * time.Millisecond
)

// Config carries construction-time settings. Offsets and FPS are
// deployment tuning; only Name, ServiceURL and an asset source are
// required.
type Config struct {
	// Name identifies the avatar's asset set and is echoed to the
	// rendering service.
	Name string
	// ServiceURL is the rendering service websocket endpoint
	// (e.g. wss://host/ws).
	ServiceURL string
	// AssetURL roots the static asset tree; ignored when Assets is set.
	AssetURL string
	// Assets overrides the default HTTP asset fetcher.
	Assets AssetFetcher

	FPS int
	// GateTolerance is the frame distance from the idle restart point
	// within which gated audio releases. Zero selects the default; a
	// negative value demands an exact splice.
	GateTolerance int
	// InterruptGrace is how long a new speak request waits after tearing
	// down an actively speaking session, letting in-flight render ticks
	// settle. Empirical, tunable.
	InterruptGrace time.Duration

	CanvasWidth  int
	CanvasHeight int
	Nudge        OverlayNudge
	WipeGreen    bool

	// PreloadRanges are the range ids whose frames block readiness.
	// AllowRanges load in the background afterwards; a speak request
	// naming one of them before it finishes is downgraded to the idle
	// range.
	PreloadRanges []int
	AllowRanges   []int

	// PhonemeCount of phoneme overlay images to load; zero disables
	// phoneme mode.
	PhonemeCount         int
	PhonemeFrameDuration time.Duration

	// NewClip constructs the audio clip for each session. Defaults to the
	// timer-driven WAV clip.
	NewClip NewClipFunc
	// Dialer overrides the websocket dialer.
	Dialer *websocket.Dialer
	// Present, if set, receives the composited canvas every tick. It runs
	// on the render loop and must not block. The image is reused across
	// ticks.
	Present func(*image.RGBA)

	Debug bool
}

// SpeakRequest describes one utterance.
type SpeakRequest struct {
	Text     string
	RangeIDs []int
	// CustomAudio, when set, replaces the server-provided clip without
	// altering any other protocol behavior.
	CustomAudio string
	// Messages is optional conversation history forwarded verbatim.
	Messages []ChatHistoryMessage
}

// ChatHistoryMessage is one prior conversation turn.
type ChatHistoryMessage struct {
	Role    string
	Content string
}

// Avatar is the playback engine. All mutable render state is guarded by
// mu; session and audio callbacks re-check their generation before
// touching it, so a superseded session can never mutate live state.
type Avatar struct {
	cfg Config
	bus *Bus
	gen atomic.Uint64

	mu           sync.Mutex
	ranges       []Range
	bbox         map[int]BBox
	images       map[int]image.Image
	masks        map[int]image.Image
	phonemes     []image.Image
	silenceTrack []int
	actionTrack  []int
	clock        *frameClock
	comp         *compositor

	isFeating      bool
	isLoading      bool
	isRangeLoading bool
	hasNewMotion   bool
	wipeGreen      bool

	phonemeMode  bool
	phonemeStart time.Time

	overlay []image.Image
	audio   Clip
	conn    *websocket.Conn

	running  bool
	loopDone chan struct{}
}

// New validates cfg, fills defaults and returns an engine ready for
// Start. Nothing is fetched yet.
func New(cfg Config) (*Avatar, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("avatar: Name is required")
	}
	if cfg.Assets == nil {
		if cfg.AssetURL == "" {
			return nil, fmt.Errorf("avatar: either Assets or AssetURL is required")
		}
		cfg.Assets = NewHTTPAssets(cfg.AssetURL)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.GateTolerance == 0 {
		cfg.GateTolerance = DefaultGateTolerance
	} else if cfg.GateTolerance < 0 {
		cfg.GateTolerance = 0
	}
	if cfg.InterruptGrace <= 0 {
		cfg.InterruptGrace = DefaultInterruptGrace
	}
	if cfg.CanvasWidth <= 0 {
		cfg.CanvasWidth = DefaultCanvasWidth
	}
	if cfg.CanvasHeight <= 0 {
		cfg.CanvasHeight = DefaultCanvasHeight
	}
	if cfg.PhonemeFrameDuration <= 0 {
		cfg.PhonemeFrameDuration = defaultPhonemeFrameDuration
	}
	if cfg.NewClip == nil {
		cfg.NewClip = NewWAVClip
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if len(cfg.PreloadRanges) == 0 {
		cfg.PreloadRanges = []int{0}
	}

	a := &Avatar{
		cfg:            cfg,
		bus:            NewBus(),
		ranges:         []Range{{}},
		images:         make(map[int]image.Image),
		masks:          make(map[int]image.Image),
		bbox:           make(map[int]BBox),
		clock:          newFrameClock(cfg.FPS),
		comp:           newCompositor(cfg.CanvasWidth, cfg.CanvasHeight, cfg.Nudge),
		isLoading:      true,
		isRangeLoading: true,
		wipeGreen:      cfg.WipeGreen,
	}
	return a, nil
}

// On subscribes to a lifecycle event. The returned subscription can be
// cancelled to detach the handler.
func (a *Avatar) On(ev Event, fn Handler) *Subscription {
	return a.bus.Subscribe(ev, fn)
}

// Start begins the render loop and kicks off asset loading in the
// background. The loop runs until ctx is cancelled or Close is called.
func (a *Avatar) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("avatar: already started")
	}
	a.running = true
	a.loopDone = make(chan struct{})
	a.mu.Unlock()

	go a.load(ctx)
	go a.renderLoop(ctx)
	return nil
}

// Close stops the render loop and tears down any active session.
func (a *Avatar) Close() {
	a.mu.Lock()
	running := a.running
	a.running = false
	done := a.loopDone
	a.mu.Unlock()

	a.Stop()
	if running && done != nil {
		<-done
	}
}

// Feating reports whether the action track is currently driving
// rendering (speech in progress).
func (a *Avatar) Feating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isFeating
}

// Loading reports whether initial assets are still being fetched.
func (a *Avatar) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isLoading
}

func (a *Avatar) renderLoop(ctx context.Context) {
	defer close(a.loopDone)
	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.mu.Lock()
			if !a.running {
				a.mu.Unlock()
				return
			}
			a.mu.Unlock()
			a.Tick(now)
		}
	}
}

// Tick runs one render pass for the given timestamp. The render loop
// calls it at the configured frame rate; tests drive it directly with a
// synthetic clock. It never blocks on I/O and never panics outward.
func (a *Avatar) Tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("avatar: render tick recovered", "panic", r)
		}
	}()

	var release Clip
	var releaseGen uint64

	a.mu.Lock()
	trackLen := len(a.silenceTrack)
	if a.isFeating && len(a.actionTrack) > 0 {
		trackLen = len(a.actionTrack)
	}
	cf := a.clock.Advance(now, trackLen)
	frameIdx := frameIndexAt(cf, a.actionTrack, a.silenceTrack)

	if !a.isLoading {
		a.composite(now, cf, frameIdx)
		framesRendered.Inc()
	}

	// Playback gate: hold ready audio until the idle loop is within
	// tolerance of its restart point, then release exactly once.
	if a.hasNewMotion && a.audio != nil {
		if abs(frameIdx-a.ranges[0].Start) <= a.cfg.GateTolerance {
			a.hasNewMotion = false
			release = a.audio
			releaseGen = a.gen.Load()
		} else {
			gateWaitTicks.Inc()
			if a.cfg.Debug {
				slog.Debug("avatar: waiting for splice point", "frame", frameIdx, "target", a.ranges[0].Start)
			}
		}
	}
	a.mu.Unlock()

	if release != nil {
		a.bus.Emit(EventBeforeSpeak, nil)
		// A Stop or interrupt landing after the gate opened has already
		// paused and detached this clip; playing it now would leave audio
		// running with no handle left to stop it.
		if a.gen.Load() == releaseGen {
			release.Play()
		}
	}
}

// composite renders the current tick. Caller holds mu.
func (a *Avatar) composite(now time.Time, cf, frameIdx int) {
	if frameIdx == 0 {
		return
	}

	var fd frameDraw
	if a.phonemeMode && a.isFeating && len(a.phonemes) > 0 {
		elapsed := now.Sub(a.phonemeStart)
		idx := int(elapsed/a.cfg.PhonemeFrameDuration) % len(a.phonemes)
		fd.base = a.phonemes[idx]
	}
	if fd.base == nil {
		fd.base = a.images[frameIdx]
	}

	if a.isFeating {
		if box, ok := a.bbox[frameIdx]; ok {
			if cf < len(a.overlay) && a.overlay[cf] != nil {
				b := box
				fd.box = &b
				fd.overlay = a.overlay[cf]
			} else if a.cfg.Debug {
				slog.Debug("avatar: overlay not yet buffered", "tick", cf)
			}
		} else if a.cfg.Debug {
			slog.Debug("avatar: no bounding box for frame", "frame", frameIdx)
		}
	}

	if a.wipeGreen {
		fd.mask = a.masks[frameIdx]
	}

	canvas := a.comp.render(fd)
	if a.cfg.Present != nil {
		a.cfg.Present(canvas)
	}
}

// Stop tears down any active session and returns the engine to the idle
// loop. Calling it twice produces the same end state with no error.
func (a *Avatar) Stop() {
	a.gen.Add(1)

	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	clip := a.audio
	a.audio = nil
	a.isFeating = false
	a.hasNewMotion = false
	a.actionTrack = nil
	a.overlay = nil
	a.phonemeMode = false
	a.clock.Reset()
	a.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if clip != nil {
		clip.Pause()
	}
}

// interrupt quiesces the previous session before a new one starts. When
// the prior session was actively feating it waits out the grace period so
// in-flight ticks settle before new state takes effect.
func (a *Avatar) interrupt(ctx context.Context) error {
	a.gen.Add(1)

	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	clip := a.audio
	a.audio = nil
	wasFeating := a.isFeating
	a.isFeating = false
	a.hasNewMotion = false
	a.actionTrack = nil
	a.overlay = nil
	a.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		sessionsInterrupted.Inc()
	}
	if clip != nil {
		clip.Pause()
	}

	if wasFeating {
		slog.Info("avatar: interrupted active speech, waiting grace period", "grace", a.cfg.InterruptGrace)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.InterruptGrace):
		}
	}
	return nil
}

// downgradeRangeIDs maps range ids still covered by the delayed asset
// class to the idle range until that class finishes loading. Caller
// holds mu.
func (a *Avatar) downgradeRangeIDs(ids []int) []int {
	if !a.isRangeLoading {
		return ids
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = id
		for _, allow := range a.cfg.AllowRanges {
			if id == allow {
				slog.Warn("avatar: range still loading, downgrading to idle", "range_id", id)
				out[i] = 0
				break
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
