// Package fonts provides the typefaces used on rendered cards.
package fonts

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	loadOnce sync.Once
	regular  *opentype.Font
	bold     *opentype.Font
	loadErr  error
)

func load() error {
	loadOnce.Do(func() {
		if regular, loadErr = opentype.Parse(goregular.TTF); loadErr != nil {
			loadErr = fmt.Errorf("parse regular font: %w", loadErr)
			return
		}
		if bold, loadErr = opentype.Parse(gobold.TTF); loadErr != nil {
			loadErr = fmt.Errorf("parse bold font: %w", loadErr)
		}
	})
	return loadErr
}

// NewFace returns a face at size pixels. Faces are not safe for concurrent use.
func NewFace(size float64, isBold bool) (font.Face, error) {
	if err := load(); err != nil {
		return nil, err
	}
	f := regular
	if isBold {
		f = bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// TTF returns the raw font file, for embedding in markup.
func TTF(isBold bool) []byte {
	if isBold {
		return gobold.TTF
	}
	return goregular.TTF
}

// Metrics returns the ascent and descent in pixels of the face at size.
func Metrics(size float64, isBold bool) (ascent, descent float64, err error) {
	face, err := NewFace(size, isBold)
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()
	m := face.Metrics()
	return float64(m.Ascent) / 64, float64(m.Descent) / 64, nil
}
