package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/armory-card/internal/fonts"
	"github.com/user/armory-card/internal/layout"
)

const cardFamily = "CardSans"

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
{{.FontCSS}}
html, body { margin: 0; padding: 0; background: transparent; }
#card { position: relative; overflow: hidden; font-family: {{.Family}}; {{.CardStyle}} }
.n { position: absolute; box-sizing: border-box; margin: 0; }
.t { position: absolute; white-space: pre; margin: 0; }
</style>
</head>
<body>
<div id="card">
{{- range .Elements}}
{{- if eq .Kind "img"}}<img class="n" alt="" src="{{.Src}}" style="{{.Style}}">
{{- else if eq .Kind "text"}}<div class="t" style="{{.Style}}">{{.Text}}</div>
{{- else}}<div class="n" style="{{.Style}}"></div>
{{- end}}
{{- end}}
</div>
</body>
</html>
`))

type element struct {
	Kind  string
	Style template.CSS
	Src   template.URL
	Text  string
}

type cardData struct {
	FontCSS   template.CSS
	Family    template.CSS
	CardStyle template.CSS
	Elements  []element
}

// Markup renders p as a standalone HTML document. Images are inlined from
// icons; images without data are left out.
func Markup(p *layout.Plan, icons map[string][]byte) (string, error) {
	data := cardData{
		FontCSS: fontFaceCSS(),
		Family:  template.CSS(cardFamily),
		CardStyle: template.CSS(fmt.Sprintf("width: %dpx; height: %dpx; background: linear-gradient(to bottom, %s, %s);",
			p.Width, p.Height, cssColor(p.Background.Top), cssColor(p.Background.Bottom))),
	}

	type vmetrics struct{ ascent, descent float64 }
	metrics := make(map[layout.Font]vmetrics)

	var err error
	p.Walk(func(n layout.Node) {
		if err != nil {
			return
		}
		switch v := n.(type) {
		case layout.Rect:
			data.Elements = append(data.Elements, element{Kind: "rect", Style: rectStyle(v)})
		case layout.Image:
			raw, ok := icons[v.URL]
			if !ok {
				return
			}
			data.Elements = append(data.Elements, element{
				Kind:  "img",
				Style: template.CSS(box(v.X, v.Y, v.W, v.H) + fmt.Sprintf("border-radius: %spx; object-fit: cover;", px(v.Radius))),
				Src:   template.URL(dataURI(raw)),
			})
		case layout.Text:
			m, ok := metrics[v.Font]
			if !ok {
				if m.ascent, m.descent, err = fonts.Metrics(v.Font.Size, v.Font.Bold); err != nil {
					return
				}
				metrics[v.Font] = m
			}
			data.Elements = append(data.Elements, element{Kind: "text", Style: textStyle(v, m.ascent, m.descent), Text: v.Text})
		}
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute card template: %w", err)
	}
	return buf.String(), nil
}

func fontFaceCSS() template.CSS {
	var b strings.Builder
	for _, weight := range []struct {
		bold  bool
		value int
	}{{false, 400}, {true, 700}} {
		fmt.Fprintf(&b, "@font-face { font-family: %s; font-weight: %d; src: url(data:font/ttf;base64,%s) format(\"truetype\"); }\n",
			cardFamily, weight.value, base64.StdEncoding.EncodeToString(fonts.TTF(weight.bold)))
	}
	return template.CSS(b.String())
}

func dataURI(raw []byte) string {
	return "data:" + http.DetectContentType(raw) + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func box(x, y, w, h float64) string {
	return fmt.Sprintf("left: %spx; top: %spx; width: %spx; height: %spx; ", px(x), px(y), px(w), px(h))
}

func cssColor(c layout.Color) string {
	rgba := c.RGBA()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgba.R, rgba.G, rgba.B, strconv.FormatFloat(float64(rgba.A)/255, 'f', 3, 64))
}

func rectStyle(r layout.Rect) template.CSS {
	style := box(r.X, r.Y, r.W, r.H) + fmt.Sprintf("border-radius: %spx; ", px(r.Radius))
	if r.Fill != "" {
		style += "background: " + cssColor(r.Fill) + "; "
	}
	if r.Stroke != "" && r.StrokeWidth > 0 {
		style += fmt.Sprintf("border: %spx solid %s; ", px(r.StrokeWidth), cssColor(r.Stroke))
	}
	return template.CSS(style)
}

// textStyle places the run so its baseline lands on t.Y.
func textStyle(t layout.Text, ascent, descent float64) template.CSS {
	weight := 400
	if t.Font.Bold {
		weight = 700
	}
	return template.CSS(fmt.Sprintf("left: %spx; top: %spx; font-size: %spx; line-height: %spx; font-weight: %d; color: %s;",
		px(t.X), px(t.Y-ascent), px(t.Font.Size), px(ascent+descent), weight, cssColor(t.Color)))
}
