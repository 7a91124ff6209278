package layout

import (
	"math"
	"strconv"

	"github.com/user/armory-card/internal/domain"
)

// Placeholder stands in for a missing item name.
const Placeholder = "—"

// Gear card geometry.
const (
	GearWidth  = 1000
	GearHeight = 1000
	Padding    = 24

	IconSize  = 52
	TextWidth = 230
	SlotWidth = IconSize + 12 + TextWidth
	SlotH     = 74
	SlotGapY  = 12

	ColumnLeftX  = Padding
	ColumnRightX = GearWidth - Padding - SlotWidth
	SlotsTopY    = 140

	WeaponsY   = GearHeight - Padding - SlotH
	WeaponsGap = 14

	NameLineHeight = 18
)

var (
	labelFont   = Font{Size: 13}
	nameFont    = Font{Size: 14}
	ilvlFont    = Font{Size: 13}
	titleFont   = Font{Size: 42, Bold: true}
	subFont     = Font{Size: 18}
	specFont    = Font{Size: 16}
	sectionFont = Font{Size: 18, Bold: true}
)

// Card palette.
const (
	gold       Color = "#d8c88b"
	muted      Color = "#9aa1a7"
	white      Color = "#ffffff"
	textColor  Color = "#c9d1d9"
	labelColor Color = "#8b949e"
	ilvlColor  Color = "#7aa2ff"
)

var qualityColors = map[domain.Quality]Color{
	domain.QualityLegendary: "#ff8000",
	domain.QualityEpic:      "#a335ee",
	domain.QualityRare:      "#0070dd",
	domain.QualityUncommon:  "#1eff00",
	domain.QualityArtifact:  "#e6cc80",
	domain.QualityHeirloom:  "#e6cc80",
	domain.QualityPoor:      "#9d9d9d",
	domain.QualityCommon:    "#8a8f98",
}

// QualityColor maps a quality to its border colour. Unknown qualities use Common's colour.
func QualityColor(q domain.Quality) Color {
	if c, ok := qualityColors[q]; ok {
		return c
	}
	return qualityColors[domain.QualityCommon]
}

// LayoutGear plans the equipment card: 8 slots on the left, 8 on the right and
// the 3 weapons centred along the bottom.
func LayoutGear(sheet *domain.CharacterSheet, m Measurer) *Plan {
	p := newCard("gear", GearWidth, GearHeight)

	p.add(Text{X: Padding, Y: 58, Text: sheet.Name, Font: titleFont, Color: gold})
	p.add(Text{X: Padding + 6, Y: 88, Text: sheet.RaceClass, Font: subFont, Color: muted})
	if sheet.SpecText != "" {
		t := "Spec: " + sheet.SpecText
		p.add(Text{X: (GearWidth - m.Measure(t, specFont)) / 2, Y: 112, Text: t, Font: specFont, Color: white})
	}
	addPortrait(p, sheet.ThumbnailURL, GearWidth)

	p.add(
		Text{X: ColumnLeftX, Y: SlotsTopY - 18, Text: "Equipment", Font: sectionFont, Color: white},
		Text{X: ColumnRightX, Y: SlotsTopY - 18, Text: "Equipment", Font: sectionFont, Color: white},
		Text{X: (GearWidth - 120) / 2, Y: WeaponsY - 12, Text: "Weapons", Font: sectionFont, Color: white},
	)

	for i, slot := range domain.LeftSlots {
		p.add(gearSlot(m, ColumnLeftX, slotY(i), slot, sheet.GearSlots))
	}
	for i, slot := range domain.RightSlots {
		p.add(gearSlot(m, ColumnRightX, slotY(i), slot, sheet.GearSlots))
	}
	startX := WeaponsStartX()
	for i, slot := range domain.WeaponSlots {
		p.add(gearSlot(m, startX+float64(i*(SlotWidth+WeaponsGap)), WeaponsY, slot, sheet.GearSlots))
	}
	return p
}

func slotY(i int) float64 {
	return float64(SlotsTopY + i*(SlotH+SlotGapY))
}

// WeaponsStartX is the x of the first weapon slot, centring all three.
func WeaponsStartX() float64 {
	total := SlotWidth*3 + WeaponsGap*2
	return math.Round(float64(GearWidth-total) / 2)
}

// SlotGroupName names the group holding one gear slot.
func SlotGroupName(slot string) string {
	return "slot:" + slot
}

func gearSlot(m Measurer, x, y float64, slot string, gear map[string]domain.GearItem) Group {
	item, ok := gear[slot]
	if !ok {
		item = domain.EmptyGearItem()
	}
	g := Group{Name: SlotGroupName(slot)}

	g.Children = append(g.Children,
		Rect{X: x - 6, Y: y - 6, W: SlotWidth + 12, H: SlotH + 12, Radius: 12, Fill: "#0f1116", Stroke: "#1e232b", StrokeWidth: 1},
		Rect{X: x, Y: y, W: IconSize, H: IconSize, Radius: 6, Fill: "#1a1d22"},
	)
	if item.IconURL != nil && *item.IconURL != "" {
		g.Children = append(g.Children, Image{X: x + 3, Y: y + 3, W: IconSize - 6, H: IconSize - 6, Radius: 4, URL: *item.IconURL})
	}
	g.Children = append(g.Children,
		Rect{X: x + 0.5, Y: y + 0.5, W: IconSize - 1, H: IconSize - 1, Radius: 6, Stroke: QualityColor(item.Quality), StrokeWidth: 3})

	textX := x + IconSize + 12
	g.Children = append(g.Children, Text{X: textX, Y: y + 16, Text: domain.SlotLabel(slot) + ":", Font: labelFont, Color: labelColor})

	lines := WrapTwoLines(m, nameFont, itemName(item), TextWidth)
	nameBaseY := y + 34
	for i, line := range lines {
		g.Children = append(g.Children, Text{X: textX, Y: nameBaseY + float64(i*NameLineHeight), Text: line, Font: nameFont, Color: textColor})
	}

	if item.ILvl != nil && *item.ILvl > 0 {
		ilvlY := math.Min(y+SlotH-8, nameBaseY+float64(len(lines)*NameLineHeight)+8)
		g.Children = append(g.Children, Text{X: textX, Y: ilvlY, Text: "ilvl " + strconv.Itoa(*item.ILvl), Font: ilvlFont, Color: ilvlColor})
	}
	return g
}

func itemName(item domain.GearItem) string {
	if item.Name != nil && *item.Name != "" {
		return *item.Name
	}
	if item.ItemID != nil {
		return "Item " + strconv.Itoa(*item.ItemID)
	}
	return Placeholder
}

// newCard starts a plan with the shared background and frame.
func newCard(name string, w, h int) *Plan {
	p := &Plan{
		Name:       name,
		Width:      w,
		Height:     h,
		Background: Gradient{Top: "#0b0d10", Bottom: "#111418"},
	}
	p.add(
		Rect{X: 6, Y: 6, W: float64(w - 12), H: float64(h - 12), Radius: 14, Stroke: "#272b31", StrokeWidth: 2},
		Rect{X: 10, Y: 10, W: float64(w - 20), H: float64(h - 20), Radius: 12, Fill: "#ffffff06"},
	)
	return p
}

func addPortrait(p *Plan, thumb *string, cardWidth int) {
	if thumb == nil || *thumb == "" {
		return
	}
	x := float64(cardWidth - Padding - 84)
	p.add(Group{Name: "portrait", Children: []Node{
		Image{X: x, Y: Padding, W: 78, H: 78, Radius: 10, URL: *thumb},
		Rect{X: x, Y: Padding, W: 78, H: 78, Radius: 10, Stroke: "#2b2f36", StrokeWidth: 2},
	}})
}
