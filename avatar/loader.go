package avatar

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/scsonic/nexavatar/shared/backoff"
)

// load fetches the avatar's configuration and pre-rendered assets. The
// preload range class blocks readiness; the allow range class continues
// in the background, during which speak requests naming those ranges are
// downgraded to idle.
func (a *Avatar) load(ctx context.Context) {
	var ranges []Range
	err := backoff.Retry(ctx, assetRetry, func(ctx context.Context, attempt int) error {
		var err error
		ranges, err = a.cfg.Assets.Ranges(ctx, a.cfg.Name)
		if err != nil && attempt > 1 {
			slog.Warn("avatar: range table fetch retry failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		a.bus.Emit(EventError, fmt.Errorf("load range table: %w", err))
		return
	}
	if len(ranges) == 0 || !ranges[0].Valid() {
		a.bus.Emit(EventError, fmt.Errorf("range table has no usable idle range"))
		return
	}

	var bbox map[int]BBox
	err = backoff.Retry(ctx, assetRetry, func(ctx context.Context, attempt int) error {
		var err error
		bbox, err = a.cfg.Assets.BoundingBoxes(ctx, a.cfg.Name)
		return err
	})
	if err != nil {
		// Overlay placement degrades gracefully without boxes; idle
		// rendering does not need them.
		slog.Warn("avatar: bounding boxes unavailable", "error", err)
		bbox = nil
	}

	a.mu.Lock()
	a.ranges = ranges
	a.silenceTrack = ranges[0].Frames()
	a.actionTrack = nil
	if bbox != nil {
		a.bbox = bbox
	}
	a.mu.Unlock()

	if err := a.loadRangeFrames(ctx, a.cfg.PreloadRanges); err != nil {
		a.bus.Emit(EventError, fmt.Errorf("preload frames: %w", err))
		return
	}

	a.loadPhonemes(ctx)

	a.mu.Lock()
	a.isLoading = false
	delayed := len(a.cfg.AllowRanges) > 0
	if !delayed {
		a.isRangeLoading = false
	}
	a.mu.Unlock()

	slog.Info("avatar: initial load complete", "avatar", a.cfg.Name, "ranges", len(ranges))
	a.bus.Emit(EventReady, nil)

	if delayed {
		go a.loadDelayedRanges(ctx)
	}
}

func (a *Avatar) loadDelayedRanges(ctx context.Context) {
	if err := a.loadRangeFrames(ctx, a.cfg.AllowRanges); err != nil {
		// The downgrade path keeps working; these ranges just stay
		// unavailable.
		slog.Warn("avatar: delayed range load failed", "error", err)
		a.bus.Emit(EventError, fmt.Errorf("load delayed ranges: %w", err))
		return
	}
	a.mu.Lock()
	a.isRangeLoading = false
	a.mu.Unlock()
	slog.Info("avatar: delayed ranges loaded", "count", len(a.cfg.AllowRanges))
}

// loadRangeFrames fetches every frame (and mask, when chroma keying is
// on) covered by the given range ids, in bounded batches with per-image
// retry.
func (a *Avatar) loadRangeFrames(ctx context.Context, rangeIDs []int) error {
	a.mu.Lock()
	frames := buildTrack(a.ranges, rangeIDs)
	wipe := a.wipeGreen
	a.mu.Unlock()

	seen := make(map[int]bool)
	var want []int
	for _, f := range frames {
		if !seen[f] {
			seen[f] = true
			want = append(want, f)
		}
	}

	for start := 0; start < len(want); start += preloadBatchSize {
		end := start + preloadBatchSize
		if end > len(want) {
			end = len(want)
		}

		var wg sync.WaitGroup
		errs := make([]error, end-start)
		for i, idx := range want[start:end] {
			wg.Add(1)
			go func(i, idx int) {
				defer wg.Done()
				errs[i] = a.loadOneFrame(ctx, idx, wipe)
			}(i, idx)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Avatar) loadOneFrame(ctx context.Context, idx int, wipe bool) error {
	img, err := fetchFrameWithRetry(ctx, a.cfg.Assets, a.cfg.Name, idx)
	if err != nil {
		return fmt.Errorf("frame %d: %w", idx, err)
	}

	var mask image.Image
	if wipe {
		mask, err = a.cfg.Assets.Mask(ctx, a.cfg.Name, idx)
		if err != nil {
			// Without masks the avatar still renders, just without
			// background removal.
			a.mu.Lock()
			if a.wipeGreen {
				a.wipeGreen = false
				slog.Warn("avatar: mask unavailable, disabling chroma keying", "frame", idx, "error", err)
			}
			a.mu.Unlock()
			mask = nil
		}
	}

	a.mu.Lock()
	a.images[idx] = img
	if mask != nil {
		a.masks[idx] = mask
	}
	a.mu.Unlock()
	return nil
}

// loadPhonemes fetches the cyclic phoneme strip. Failures only disable
// phoneme mode.
func (a *Avatar) loadPhonemes(ctx context.Context) {
	if a.cfg.PhonemeCount <= 0 {
		return
	}
	var imgs []image.Image
	for i := 1; i <= a.cfg.PhonemeCount; i++ {
		img, err := a.cfg.Assets.Phoneme(ctx, a.cfg.Name, i)
		if err != nil {
			slog.Warn("avatar: phoneme strip incomplete, disabling phoneme mode", "loaded", len(imgs), "error", err)
			return
		}
		imgs = append(imgs, img)
	}
	a.mu.Lock()
	a.phonemes = imgs
	a.mu.Unlock()
	slog.Info("avatar: phoneme strip loaded", "count", len(imgs))
}
