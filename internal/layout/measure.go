package layout

import (
	"sync"

	"github.com/user/armory-card/internal/fonts"
	"golang.org/x/image/font"
)

// Measurer reports the advance width of text in pixels.
type Measurer interface {
	Measure(text string, f Font) float64
}

// FontMeasurer measures with the same faces the renderers draw with.
type FontMeasurer struct {
	mu    sync.Mutex
	faces map[Font]font.Face
}

func NewFontMeasurer() *FontMeasurer {
	return &FontMeasurer{faces: make(map[Font]font.Face)}
}

func (m *FontMeasurer) Measure(text string, f Font) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	face, ok := m.faces[f]
	if !ok {
		var err error
		face, err = fonts.NewFace(f.Size, f.Bold)
		if err != nil {
			// embedded fonts always parse; fall back to a rough estimate anyway
			return float64(len([]rune(text))) * f.Size * 0.55
		}
		m.faces[f] = face
	}
	return float64(font.MeasureString(face, text)) / 64
}
