package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/user/armory-card/internal/fonts"
	"github.com/user/armory-card/internal/layout"
	"github.com/user/armory-card/internal/monitoring"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	_ "golang.org/x/image/webp"
)

// CanvasRenderer draws plans with an immediate-mode 2D context.
type CanvasRenderer struct {
	icons   *IconLoader
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewCanvasRenderer(icons *IconLoader, m *monitoring.Metrics, l *zap.Logger) *CanvasRenderer {
	return &CanvasRenderer{icons: icons, metrics: m, logger: l}
}

func (r *CanvasRenderer) Name() string { return "canvas" }

func (r *CanvasRenderer) Render(ctx context.Context, p *layout.Plan) ([]byte, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveRender(p.Name, r.Name(), time.Since(start)) }()

	images := r.decodeIcons(r.icons.Fetch(ctx, p.ImageURLs()))

	dc := gg.NewContext(p.Width, p.Height)
	grad := gg.NewLinearGradient(0, 0, 0, float64(p.Height))
	grad.AddColorStop(0, p.Background.Top.RGBA())
	grad.AddColorStop(1, p.Background.Bottom.RGBA())
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(p.Width), float64(p.Height))
	dc.Fill()

	faces := make(map[layout.Font]font.Face)
	defer func() {
		for _, f := range faces {
			_ = f.Close()
		}
	}()

	var drawErr error
	p.Walk(func(n layout.Node) {
		if drawErr != nil {
			return
		}
		switch v := n.(type) {
		case layout.Rect:
			drawRect(dc, v)
		case layout.Image:
			if img, ok := images[v.URL]; ok {
				drawImage(dc, v, img)
			}
		case layout.Text:
			face, ok := faces[v.Font]
			if !ok {
				var err error
				if face, err = fonts.NewFace(v.Font.Size, v.Font.Bold); err != nil {
					drawErr = err
					return
				}
				faces[v.Font] = face
			}
			dc.SetFontFace(face)
			dc.SetColor(v.Color.RGBA())
			dc.DrawString(v.Text, v.X, v.Y)
		}
	})
	if drawErr != nil {
		return nil, fmt.Errorf("draw %s card: %w", p.Name, drawErr)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode %s card: %w", p.Name, err)
	}
	return buf.Bytes(), nil
}

func (r *CanvasRenderer) decodeIcons(raw map[string][]byte) map[string]image.Image {
	out := make(map[string]image.Image, len(raw))
	for u, data := range raw {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			r.logger.Debug("icon decode failed", zap.String("url", u), zap.Error(err))
			continue
		}
		out[u] = img
	}
	return out
}

func roundedPath(dc *gg.Context, x, y, w, h, radius float64) {
	if radius <= 0 {
		dc.DrawRectangle(x, y, w, h)
		return
	}
	dc.DrawRoundedRectangle(x, y, w, h, radius)
}

func drawRect(dc *gg.Context, r layout.Rect) {
	if r.Fill != "" {
		roundedPath(dc, r.X, r.Y, r.W, r.H, r.Radius)
		dc.SetColor(r.Fill.RGBA())
		dc.Fill()
	}
	if r.Stroke != "" && r.StrokeWidth > 0 {
		roundedPath(dc, r.X, r.Y, r.W, r.H, r.Radius)
		dc.SetLineWidth(r.StrokeWidth)
		dc.SetColor(r.Stroke.RGBA())
		dc.Stroke()
	}
}

// drawImage scales src into the node box and clips it to the rounded corners.
func drawImage(dc *gg.Context, n layout.Image, src image.Image) {
	w, h := int(math.Round(n.W)), int(math.Round(n.H))
	if w <= 0 || h <= 0 {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)

	dc.Push()
	roundedPath(dc, n.X, n.Y, n.W, n.H, n.Radius)
	dc.Clip()
	dc.DrawImage(scaled, int(math.Round(n.X)), int(math.Round(n.Y)))
	dc.ResetClip()
	dc.Pop()
}
