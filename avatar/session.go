package avatar

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scsonic/nexavatar/pkg/mediaproto"
)

// Speak runs one utterance end to end: it tears down any prior session,
// opens a connection to the rendering service, streams in overlay images
// and audio, and returns when the connection closes. Audio playback may
// outlive the connection; its lifecycle continues through the clip
// callbacks. A later Speak or Stop supersedes this session, in which case
// Speak returns nil.
func (a *Avatar) Speak(ctx context.Context, req SpeakRequest) error {
	if len(req.RangeIDs) == 0 {
		req.RangeIDs = []int{0}
	}

	if err := a.interrupt(ctx); err != nil {
		return err
	}
	gen := a.gen.Add(1)

	a.mu.Lock()
	if len(a.phonemes) > 0 {
		a.phonemeMode = true
		a.phonemeStart = time.Now()
	}
	ids := a.downgradeRangeIDs(req.RangeIDs)
	frameIdx := a.clock.Frame()
	a.mu.Unlock()

	start := time.Now()
	conn, _, err := a.cfg.Dialer.DialContext(ctx, a.cfg.ServiceURL, nil)
	if err != nil {
		a.failSession(gen, err)
		return fmt.Errorf("dial rendering service: %w", err)
	}

	a.mu.Lock()
	if a.gen.Load() != gen {
		a.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	a.conn = conn
	a.mu.Unlock()
	sessionsStarted.Inc()

	defer func() {
		a.mu.Lock()
		if a.gen.Load() == gen {
			a.conn = nil
		}
		a.mu.Unlock()
	}()

	payload := mediaproto.SpeakPayload{
		FrameIndex: frameIdx,
		Text:       req.Text,
		Avatar:     a.cfg.Name,
		RangeIDs:   ids,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, mediaproto.ChatMessage{Role: m.Role, Content: m.Content})
	}
	if err := conn.WriteJSON(payload); err != nil {
		_ = conn.Close()
		a.failSession(gen, err)
		return fmt.Errorf("send speak request: %w", err)
	}

	// Close the connection if the caller's context ends first; the read
	// loop then unwinds through its error path.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			if a.gen.Load() == gen {
				_ = conn.Close()
			}
		case <-watchDone:
		}
	}()

	audioSeen := false
	for {
		var msg mediaproto.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if a.gen.Load() != gen {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Info("avatar: session stream closed", "elapsed", time.Since(start))
				return nil
			}
			if ctx.Err() != nil {
				a.failSession(gen, ctx.Err())
				return ctx.Err()
			}
			a.failSession(gen, err)
			return fmt.Errorf("session stream: %w", err)
		}

		switch msg.Status {
		case mediaproto.StatusProcessing:
			a.handleProcessing(gen, &msg, ids, req.CustomAudio, &audioSeen)
		case mediaproto.StatusCompleted:
			if msg.Result != nil {
				slog.Debug("avatar: session completed",
					"azure", msg.Result.Azure,
					"wenet", msg.Result.Wenet,
					"munet", msg.Result.Munet,
					"worker", msg.Result.WorkerName)
			}
		}
	}
}

// handleProcessing applies one incremental stream message. Images are
// decoded before being appended so the overlay buffer only ever holds
// drawable frames, in arrival order.
func (a *Avatar) handleProcessing(gen uint64, msg *mediaproto.StreamMessage, ids []int, customAudio string, audioSeen *bool) {
	if msg.Pic != "" {
		if img, err := mediaproto.DecodeImage(msg.Pic); err != nil {
			slog.Warn("avatar: dropping undecodable overlay image", "error", err)
		} else {
			a.appendOverlay(gen, img)
		}
	}

	if len(msg.Pics) > 0 {
		batch := make([]image.Image, 0, len(msg.Pics))
		for _, pic := range msg.Pics {
			img, err := mediaproto.DecodeImage(pic)
			if err != nil {
				slog.Warn("avatar: dropping undecodable overlay image", "error", err)
				continue
			}
			batch = append(batch, img)
		}
		a.appendOverlay(gen, batch...)
	}

	if msg.VPic != "" {
		if sheet, err := mediaproto.DecodeImage(msg.VPic); err != nil {
			slog.Warn("avatar: dropping undecodable sprite sheet", "error", err)
		} else {
			a.appendOverlay(gen, mediaproto.SliceSprite(sheet, mediaproto.DefaultSegmentHeight)...)
		}
	}

	if msg.Text != "" {
		a.bus.Emit(EventText, msg.Text)
	}

	if msg.Wav != "" && !*audioSeen {
		*audioSeen = true
		a.attachAudio(gen, msg, ids, customAudio)
	}
}

func (a *Avatar) appendOverlay(gen uint64, imgs ...image.Image) {
	if len(imgs) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen.Load() != gen {
		return
	}
	a.overlay = append(a.overlay, imgs...)
	overlayImagesReceived.Add(float64(len(imgs)))
}

// attachAudio wires the session's clip. Only the first wav message in a
// stream reaches here; a caller-supplied override replaces the source
// without changing anything else.
func (a *Avatar) attachAudio(gen uint64, msg *mediaproto.StreamMessage, ids []int, customAudio string) {
	src := msg.Wav
	if customAudio != "" {
		slog.Info("avatar: using caller-supplied audio override")
		src = customAudio
	}
	blocks := msg.BnfBlocks

	clip := a.cfg.NewClip()
	clip.OnReady(func() { a.onAudioReady(gen, blocks) })
	clip.OnPlay(func() { a.onAudioPlay(gen, ids, blocks) })
	clip.OnEnded(func() { a.onAudioEnded(gen) })
	clip.OnError(func(err error) { a.failSession(gen, err) })

	a.mu.Lock()
	if a.gen.Load() != gen {
		a.mu.Unlock()
		return
	}
	a.audio = clip
	a.mu.Unlock()

	clip.Load(src)
}

// onAudioReady marks the clip gated for release. The action track is
// grown to cover the reported motion-unit count in case the audio runs
// longer than the requested ranges.
func (a *Avatar) onAudioReady(gen uint64, blocks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen.Load() != gen {
		return
	}
	a.actionTrack = extendTrack(a.actionTrack, a.ranges[0], blocks)
	a.hasNewMotion = true
	slog.Info("avatar: audio ready, holding for splice point", "blocks", blocks)
}

// onAudioPlay switches rendering to the action track, anchored at its
// first frame.
func (a *Avatar) onAudioPlay(gen uint64, ids []int, blocks int) {
	a.mu.Lock()
	if a.gen.Load() != gen {
		a.mu.Unlock()
		return
	}
	a.actionTrack = extendTrack(buildTrack(a.ranges, ids), a.ranges[0], blocks)
	a.isFeating = true
	a.clock.Reset()
	a.mu.Unlock()

	a.bus.Emit(EventSpeakStart, nil)
}

func (a *Avatar) onAudioEnded(gen uint64) {
	a.mu.Lock()
	if a.gen.Load() != gen {
		a.mu.Unlock()
		return
	}
	a.isFeating = false
	a.actionTrack = nil
	a.overlay = nil
	a.phonemeMode = false
	a.mu.Unlock()

	a.bus.Emit(EventSpeakEnd, nil)
}

// failSession resets speech state immediately. No retry at this layer;
// the caller decides whether to try again.
func (a *Avatar) failSession(gen uint64, err error) {
	a.mu.Lock()
	if a.gen.Load() != gen {
		a.mu.Unlock()
		return
	}
	a.isFeating = false
	a.hasNewMotion = false
	a.overlay = nil
	a.actionTrack = nil
	a.phonemeMode = false
	a.mu.Unlock()

	sessionsFailed.Inc()
	a.bus.Emit(EventSpeakError, err)
}
