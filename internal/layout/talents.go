package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/user/armory-card/internal/domain"
)

// Talent card geometry.
const (
	TalentsWidth  = 1200
	TalentsHeight = 900

	TreeWidth  = 260
	TreeHeight = 640
	TreeGap    = 36

	TileSize = 52
	RowGap   = 10
	ColGap   = 10

	GlyphColumnWidth = 288
	TreeGlyphGap     = 48

	TreesTopY   = 150
	TreeChipY   = 126
	GlyphIndent = 18
	GlyphLineH  = 21
	GlyphGap    = 14
)

var (
	chipFont       = Font{Size: 14}
	treeTitleFont  = Font{Size: 16, Bold: true}
	treePointsFont = Font{Size: 13}
	badgeFont      = Font{Size: 12, Bold: true}
	glyphTitleFont = Font{Size: 18, Bold: true}
	glyphFont      = Font{Size: 13}
)

// TileStyle is the highlight applied to a talent tile.
type TileStyle int

const (
	TileNeutral TileStyle = iota
	TileMuted
	TileRanked
	TileMaxed
)

// StyleOf picks the tile highlight: disabled tiles are muted, full ranks are
// maxed, any other spent points are ranked.
func StyleOf(t domain.Talent) TileStyle {
	switch {
	case t.State == domain.TalentDisabled:
		return TileMuted
	case t.Max > 0 && t.Rank == t.Max:
		return TileMaxed
	case t.Rank > 0:
		return TileRanked
	default:
		return TileNeutral
	}
}

func (s TileStyle) border() Color {
	switch s {
	case TileRanked:
		return "#9c8a3a"
	case TileMaxed:
		return "#d1b84b"
	default:
		return "#2b313a"
	}
}

func (s TileStyle) badge() Color {
	switch s {
	case TileRanked:
		return "#b9f56a"
	case TileMaxed:
		return "#f1e58a"
	default:
		return "#8b949e"
	}
}

// TreesStartX is the x of the first tree column. The trees take a quarter of
// the spare width on their left.
func TreesStartX() float64 {
	treeArea := TreeWidth*3 + TreeGap*2
	free := TalentsWidth - Padding*2 - GlyphColumnWidth - TreeGlyphGap - treeArea
	return Padding + math.Max(0, math.Floor(float64(free)*0.25))
}

// GlyphColumnX is the left edge of the glyph column.
func GlyphColumnX() float64 {
	return TalentsWidth - Padding - GlyphColumnWidth
}

// TreeGroupName names the group holding tree i.
func TreeGroupName(i int) string {
	return "tree:" + strconv.Itoa(i)
}

// TileGroupName names the group holding one talent tile.
func TileGroupName(tree int, pos domain.Position) string {
	return fmt.Sprintf("tile:%d:%d:%d", tree, pos.Tier, pos.Column)
}

// LayoutTalents plans the talent card: three tree grids and the glyph column.
func LayoutTalents(set *domain.TalentSet, m Measurer) *Plan {
	p := newCard("talents", TalentsWidth, TalentsHeight)

	p.add(Text{X: Padding, Y: 58, Text: set.CharName, Font: titleFont, Color: gold})
	p.add(Text{X: Padding + 6, Y: 88, Text: set.RaceClass, Font: subFont, Color: muted})
	addPortrait(p, set.ThumbnailURL, TalentsWidth)

	trees := paddedTrees(set.Trees)
	startX := TreesStartX()
	for i, tree := range trees {
		colX := startX + float64(i*(TreeWidth+TreeGap))
		chip := tree.Name + " " + strconv.Itoa(tree.Points)
		p.add(Text{X: math.Round(colX + TreeWidth/2 - m.Measure(chip, chipFont)/2), Y: TreeChipY, Text: chip, Font: chipFont, Color: "#b0b6bd"})
	}
	for i, tree := range trees {
		p.add(treeGroup(m, i, tree, startX+float64(i*(TreeWidth+TreeGap))))
	}

	y := float64(TreesTopY)
	x := GlyphColumnX()
	y = glyphBlock(p, m, x, y, "Major Glyphs", set.Glyphs.Major)
	y += GlyphGap
	glyphBlock(p, m, x, y, "Minor Glyphs", set.Glyphs.Minor)
	return p
}

func paddedTrees(trees []domain.TalentTree) []domain.TalentTree {
	out := make([]domain.TalentTree, 0, 3)
	for i := 0; i < 3; i++ {
		if i < len(trees) {
			out = append(out, trees[i])
			continue
		}
		out = append(out, domain.TalentTree{Name: "Tree"})
	}
	return out
}

func treeGroup(m Measurer, idx int, tree domain.TalentTree, x0 float64) Group {
	y0 := float64(TreesTopY)
	g := Group{Name: TreeGroupName(idx)}
	pts := strconv.Itoa(tree.Points)
	g.Children = append(g.Children,
		Rect{X: x0 - 8, Y: y0 - 8, W: TreeWidth + 16, H: TreeHeight + 16, Radius: 12, Stroke: "#262a30", StrokeWidth: 1.5},
		Text{X: x0, Y: y0 - 12, Text: tree.Name, Font: treeTitleFont, Color: white},
		Text{X: x0 + TreeWidth - m.Measure(pts, treePointsFont), Y: y0 - 12, Text: pts, Font: treePointsFont, Color: textColor},
	)
	for _, tier := range tree.Tiers {
		for _, t := range tier {
			x, y := TileOrigin(x0, y0, t.Position)
			g.Children = append(g.Children, tile(m, idx, t, x, y))
		}
	}
	return g
}

// TileOrigin is the top-left corner of a tile within a tree whose grid starts at (x0, y0).
func TileOrigin(x0, y0 float64, pos domain.Position) (float64, float64) {
	return x0 + float64(pos.Column*(TileSize+ColGap)), y0 + float64(pos.Tier*(TileSize+RowGap))
}

func tile(m Measurer, tree int, t domain.Talent, x, y float64) Group {
	const size = TileSize
	style := StyleOf(t)
	g := Group{Name: TileGroupName(tree, t.Position)}

	g.Children = append(g.Children, Rect{X: x, Y: y, W: size, H: size, Radius: 6, Fill: "#161a20"})
	if t.IconURL != nil && *t.IconURL != "" {
		g.Children = append(g.Children, Image{X: x + 3, Y: y + 3, W: size - 6, H: size - 6, Radius: 4, URL: *t.IconURL})
	}
	switch {
	case style == TileMuted:
		g.Children = append(g.Children, Rect{X: x, Y: y, W: size, H: size, Radius: 6, Fill: "#00000080"})
	case t.Rank <= 0 || t.Max <= 0:
		g.Children = append(g.Children, Rect{X: x, Y: y, W: size, H: size, Radius: 6, Fill: "#00000059"})
	}
	g.Children = append(g.Children, Rect{X: x + 0.5, Y: y + 0.5, W: size - 1, H: size - 1, Radius: 6, Stroke: style.border(), StrokeWidth: 2})

	badgeBg := Color("#000000a6")
	if style == TileMuted {
		badgeBg = "#0000008c"
	}
	g.Children = append(g.Children, Rect{X: x + size - 30, Y: y + size - 20, W: 26, H: 16, Radius: 4, Fill: badgeBg})

	badge := strconv.Itoa(t.Rank) + "/" + strconv.Itoa(t.Max)
	g.Children = append(g.Children, Text{
		X:     x + size - 17 - m.Measure(badge, badgeFont)/2,
		Y:     y + size - 8,
		Text:  badge,
		Font:  badgeFont,
		Color: style.badge(),
	})
	return g
}

// glyphBlock adds a titled bullet list at (x, y) and returns the y below it.
func glyphBlock(p *Plan, m Measurer, x, y float64, title string, items []string) float64 {
	const bullet = "• "
	maxWidth := float64(GlyphColumnWidth - 24)

	g := Group{Name: "glyphs:" + title}
	g.Children = append(g.Children, Text{X: x, Y: y, Text: title, Font: glyphTitleFont, Color: gold})
	y += 22

	firstWidth := maxWidth - m.Measure(bullet, glyphFont)
	for _, item := range items {
		lines := WrapLines(m, glyphFont, item, firstWidth)
		for i, line := range lines {
			lx := x + GlyphIndent
			if i == 0 {
				lx, line = x, bullet+line
			}
			g.Children = append(g.Children, Text{X: lx, Y: y, Text: line, Font: glyphFont, Color: textColor})
			y += GlyphLineH
		}
	}
	p.add(g)
	return y
}
