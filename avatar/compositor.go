package avatar

import (
	"image"
	"image/color"
	"image/draw"
)

// BBox is the overlay bounding box for one base frame, in base-frame
// pixel coordinates.
type BBox struct {
	X1, X2, Y1, Y2 int
}

// OverlayNudge holds the small fixed pixel adjustments applied to the
// bounding box before drawing an overlay. Deployment tuning, not
// architecture.
type OverlayNudge struct {
	DX, DY, DW, DH int
}

// compositor draws one finished frame per tick: the aspect-fitted base
// frame, the current overlay while speaking, and an optional chroma mask
// applied to the result. Every failure mode (missing image, missing box)
// skips that draw and nothing else.
type compositor struct {
	canvas *image.RGBA
	nudge  OverlayNudge
}

func newCompositor(w, h int, nudge OverlayNudge) *compositor {
	return &compositor{
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		nudge:  nudge,
	}
}

type frameDraw struct {
	base    image.Image // nil skips the tick entirely
	overlay image.Image // nil skips the overlay
	mask    image.Image // nil skips chroma keying
	box     *BBox       // nil skips the overlay
}

// render composites one tick into the internal canvas and returns it. The
// returned image is reused across ticks; hosts that retain frames must
// copy.
func (c *compositor) render(fd frameDraw) *image.RGBA {
	draw.Draw(c.canvas, c.canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	if fd.base == nil {
		return c.canvas
	}
	baseRect := fitRect(fd.base.Bounds(), c.canvas.Bounds())
	scaleDraw(c.canvas, baseRect, fd.base)

	if fd.overlay != nil && fd.box != nil {
		// The bounding box is in base-frame coordinates; map it through
		// the same fit transform as the base image.
		r := c.overlayRect(*fd.box, fd.base.Bounds(), baseRect)
		scaleDraw(c.canvas, r, fd.overlay)
	}

	if fd.mask != nil {
		applyChromaMask(c.canvas, fd.mask)
	}
	return c.canvas
}

func (c *compositor) overlayRect(box BBox, baseBounds, baseRect image.Rectangle) image.Rectangle {
	sx := float64(baseRect.Dx()) / float64(baseBounds.Dx())
	sy := float64(baseRect.Dy()) / float64(baseBounds.Dy())
	x := baseRect.Min.X + int(float64(box.X1)*sx) + c.nudge.DX
	y := baseRect.Min.Y + int(float64(box.Y1)*sy) + c.nudge.DY
	w := int(float64(box.X2-box.X1)*sx) + c.nudge.DW
	h := int(float64(box.Y2-box.Y1)*sy) + c.nudge.DH
	return image.Rect(x, y, x+w, y+h)
}

// fitRect scales src into dst preserving aspect ratio, centered
// (letterbox/pillarbox as needed).
func fitRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 || dw == 0 || dh == 0 {
		return image.Rectangle{}
	}

	var w, h int
	if sw*dh > dw*sh {
		w = dw
		h = sh * dw / sw
	} else {
		h = dh
		w = sw * dh / sh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// scaleDraw draws src stretched over rect using nearest-neighbor
// sampling. Pre-rendered frames arrive at or near target size, so
// filtering quality is not worth a resampling dependency here.
func scaleDraw(dst *image.RGBA, rect image.Rectangle, src image.Image) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	sb := src.Bounds()
	w, h := rect.Dx(), rect.Dy()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sb.Dx()/w
			r, g, b, a := src.At(sx, sy).RGBA()
			if a == 0 {
				continue
			}
			dst.Set(rect.Min.X+x, rect.Min.Y+y, color.RGBA64{uint16(r), uint16(g), uint16(b), uint16(a)})
		}
	}
}

// applyChromaMask derives per-pixel alpha from the mask's average channel
// intensity: dark mask pixels become transparent background.
func applyChromaMask(dst *image.RGBA, mask image.Image) {
	bounds := dst.Bounds()
	mb := mask.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		my := mb.Min.Y + (y-bounds.Min.Y)*mb.Dy()/bounds.Dy()
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			mx := mb.Min.X + (x-bounds.Min.X)*mb.Dx()/bounds.Dx()
			r, g, b, _ := mask.At(mx, my).RGBA()
			avg := uint8(((r + g + b) / 3) >> 8)
			i := dst.PixOffset(x, y)
			dst.Pix[i+3] = avg
		}
	}
}
