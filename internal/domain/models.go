package domain

import (
	"strings"
	"time"
)

// Quality is the rarity tier of an equipped item.
type Quality string

const (
	QualityPoor      Quality = "Poor"
	QualityCommon    Quality = "Common"
	QualityUncommon  Quality = "Uncommon"
	QualityRare      Quality = "Rare"
	QualityEpic      Quality = "Epic"
	QualityLegendary Quality = "Legendary"
	QualityArtifact  Quality = "Artifact"
	QualityHeirloom  Quality = "Heirloom"
)

// Qualities lists every quality in the order of the armory's icon-quality class index.
var Qualities = []Quality{
	QualityPoor,
	QualityCommon,
	QualityUncommon,
	QualityRare,
	QualityEpic,
	QualityLegendary,
	QualityArtifact,
	QualityHeirloom,
}

// ParseQuality returns the quality named by s, or Common when s is not one of the known values.
func ParseQuality(s string) Quality {
	for _, q := range Qualities {
		if strings.EqualFold(string(q), s) {
			return q
		}
	}
	return QualityCommon
}

// Fixed equipment slot names, in the order the armory page lists them.
var (
	LeftSlots   = []string{"Head", "Neck", "Shoulder", "Back", "Chest", "Shirt", "Tabard", "Wrist"}
	RightSlots  = []string{"Hands", "Waist", "Legs", "Feet", "Ring1", "Ring2", "Trinket1", "Trinket2"}
	WeaponSlots = []string{"MainHand", "OffHand", "Ranged"}
)

// AllSlots returns the 19 slot names: left column, right column, then weapons.
func AllSlots() []string {
	out := make([]string, 0, len(LeftSlots)+len(RightSlots)+len(WeaponSlots))
	out = append(out, LeftSlots...)
	out = append(out, RightSlots...)
	out = append(out, WeaponSlots...)
	return out
}

// SlotLabels maps slot names to the label printed on the gear card.
var SlotLabels = map[string]string{
	"Ring1":    "Ring 1",
	"Ring2":    "Ring 2",
	"Trinket1": "Trinket 1",
	"Trinket2": "Trinket 2",
	"MainHand": "Main Hand",
	"OffHand":  "Off Hand",
}

// SlotLabel returns the display label for a slot name.
func SlotLabel(slot string) string {
	if l, ok := SlotLabels[slot]; ok {
		return l
	}
	return slot
}

// GearItem describes what is equipped in one slot.
type GearItem struct {
	Href      *string `json:"href"`
	ItemID    *int    `json:"itemId"`
	IconURL   *string `json:"iconUrl"`
	Name      *string `json:"name"`
	ILvl      *int    `json:"ilvl,omitempty"`
	Quality   Quality `json:"quality"`
	EnchantID *int    `json:"enchantId"`
	GemIDs    []int   `json:"gemIds"`
}

// EmptyGearItem is the value stored for a slot with nothing equipped.
func EmptyGearItem() GearItem {
	return GearItem{Quality: QualityCommon, GemIDs: []int{}}
}

// IsEmpty reports whether no item link was found for the slot.
func (g GearItem) IsEmpty() bool {
	return g.Href == nil && g.ItemID == nil && g.IconURL == nil && g.Name == nil
}

type MeleeStats struct {
	Damage string `json:"damage"`
	Hit    string `json:"hit"`
	Crit   string `json:"crit"`
}

type SpellStats struct {
	Power string `json:"power"`
	Haste string `json:"haste"`
	Hit   string `json:"hit"`
	Crit  string `json:"crit"`
}

type AttributeStats struct {
	Intellect string `json:"intellect"`
	Stamina   string `json:"stamina"`
	Spirit    string `json:"spirit"`
}

// Stats holds the stat blocks found on the profile; absent blocks stay nil.
type Stats struct {
	Melee      *MeleeStats     `json:"melee,omitempty"`
	Ranged     *MeleeStats     `json:"ranged,omitempty"`
	Spell      *SpellStats     `json:"spell,omitempty"`
	Attributes *AttributeStats `json:"attributes,omitempty"`
}

type Profession struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Activity struct {
	Title string `json:"title"`
	When  string `json:"when"`
}

// CharacterSheet is the normalized description of a character's summary page.
type CharacterSheet struct {
	Name           string              `json:"name"`
	Level          string              `json:"level"`
	RaceClass      string              `json:"raceClass"`
	SpecText       string              `json:"specText"`
	ProfileURL     string              `json:"profileUrl"`
	ThumbnailURL   *string             `json:"thumbnailUrl"`
	GearSlots      map[string]GearItem `json:"gearSlots"`
	Stats          Stats               `json:"stats"`
	Professions    []Profession        `json:"professions"`
	RecentActivity []Activity          `json:"recentActivity"`
}

// TalentState is the display state of a single talent tile.
type TalentState string

const (
	TalentPoints   TalentState = "points"
	TalentDisabled TalentState = "disabled"
	TalentMax      TalentState = "max"
)

type Position struct {
	Tier   int `json:"tier"`
	Column int `json:"column"`
}

type Talent struct {
	IconURL  *string     `json:"iconUrl"`
	State    TalentState `json:"state"`
	Rank     int         `json:"rank"`
	Max      int         `json:"max"`
	Position Position    `json:"position"`
}

// TalentTree is one of the three trees of a specialization. Tiers run top to bottom.
type TalentTree struct {
	Name   string     `json:"name"`
	Points int        `json:"points"`
	Tiers  [][]Talent `json:"tiers"`
}

type Glyphs struct {
	Major []string `json:"major"`
	Minor []string `json:"minor"`
}

// TalentSet is the active specialization parsed from the talents page.
type TalentSet struct {
	TalentsURL   string         `json:"talentsUrl"`
	ProfileURL   string         `json:"profileUrl"`
	CharName     string         `json:"charName"`
	RaceClass    string         `json:"raceClass"`
	ThumbnailURL *string        `json:"thumbnailUrl"`
	Trees        []TalentTree   `json:"trees"`
	Glyphs       Glyphs         `json:"glyphs"`
	SpecName     string         `json:"specName"`
	Points       map[string]int `json:"points"`
}

// ItemMeta is the result of a secondary item lookup. Either field may be nil.
type ItemMeta struct {
	Name *string `json:"name"`
	ILvl *int    `json:"ilvl"`
}

// CacheEntry mirrors a row of the page cache table.
type CacheEntry struct {
	Key       string
	Value     string
	CreatedAt time.Time
}

// ItemMetaEntry mirrors a row of the item metadata table.
type ItemMetaEntry struct {
	ItemID    int
	Name      *string
	ILvl      *int
	FetchedAt time.Time
}

// CommandRequest is the input of the armory and talents commands.
type CommandRequest struct {
	Character string `json:"character"`
	Realm     string `json:"realm,omitempty"`
}
