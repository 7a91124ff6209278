package armory

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/internal/cache"
	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

// gearRegion ties a block of item slots on the summary page to the slot names it fills, in document order.
type gearRegion struct {
	selector string
	slots    []string
}

var gearRegions = []gearRegion{
	{"#character-profile .item-model .item-left .item-slot", domain.LeftSlots},
	{"#character-profile .item-model .item-right .item-slot", domain.RightSlots},
	{"#character-profile .item-model .item-bottom .item-slot", domain.WeaponSlots},
}

var (
	itemIDRe      = regexp.MustCompile(`item=(\d+)`)
	qualityIdxRe  = regexp.MustCompile(`^icon-quality(\d)$`)
	enchantRe     = regexp.MustCompile(`ench=(\d+)`)
	gemsRe        = regexp.MustCompile(`gems=([0-9:]+)`)
	statLabelRe   = regexp.MustCompile(`([A-Z][a-z]+(?: [a-z]+)*):`)
	professionRe  = regexp.MustCompile(`^([A-Za-z ]+)\s+(\d+\s*/\s*\d+)`)
	whenRe        = regexp.MustCompile(`(\d+\s+\w+\s+ago)`)
	earnedRe      = regexp.MustCompile(`^Earned\s+`)
	achievementRe = regexp.MustCompile(`(?:^|\s+)achievement.*$`)
)

// ProfileExtractor produces character sheets from armory summary pages, through the page cache.
type ProfileExtractor struct {
	baseURL  string
	fetcher  Fetcher
	cache    PageCache
	resolver Resolver
	logger   *zap.Logger
}

// NewProfileExtractor builds an extractor. A nil resolver disables gear enrichment.
func NewProfileExtractor(baseURL string, f Fetcher, c PageCache, r Resolver, l *zap.Logger) *ProfileExtractor {
	return &ProfileExtractor{baseURL: baseURL, fetcher: f, cache: c, resolver: r, logger: l}
}

// Extract returns the sheet for name on realm. A live cache entry is returned without any network access.
func (e *ProfileExtractor) Extract(ctx context.Context, name, realm string) (*domain.CharacterSheet, error) {
	profileURL := ProfileURL(e.baseURL, name, realm)
	key := cache.Key(cache.NamespaceArmory, profileURL)

	var cached domain.CharacterSheet
	if e.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	body, err := e.fetcher.Get(ctx, "profile", profileURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.UpstreamFormatError{URL: profileURL, Field: "document", Err: err}
	}

	sheet, err := ParseProfile(doc, e.baseURL, profileURL, name)
	if err != nil {
		return nil, err
	}
	if e.resolver != nil {
		enrichGear(ctx, sheet, e.resolver)
	}

	e.cache.Set(ctx, key, sheet)
	e.logger.Debug("extracted profile",
		zap.String("character", sheet.Name),
		zap.String("realm", realm))
	return sheet, nil
}

// enrichGear fills names and item levels from item metadata, one slot at a time in slot order.
func enrichGear(ctx context.Context, sheet *domain.CharacterSheet, r Resolver) {
	for _, slot := range domain.AllSlots() {
		item := sheet.GearSlots[slot]
		if item.ItemID == nil {
			continue
		}
		meta := r.Resolve(ctx, *item.ItemID)
		if meta.Name != nil && *meta.Name != "" {
			item.Name = meta.Name
		}
		if meta.ILvl != nil {
			item.ILvl = meta.ILvl
		}
		sheet.GearSlots[slot] = item
	}
}

// ParseProfile reads a summary page. requestedName is the fallback display name.
// A page carrying no character at all yields an error wrapping domain.ErrCharacterNotFound.
func ParseProfile(doc *goquery.Document, baseURL, profileURL, requestedName string) (*domain.CharacterSheet, error) {
	root := doc.Selection

	name, nameFound := firstText(root, nameSelectors...)
	lrc, lrcFound := firstText(root, levelRaceClassSelectors...)
	if !nameFound && !lrcFound && !anyPresent(root, profileMarkerSelectors...) {
		return nil, &domain.UpstreamFormatError{URL: profileURL, Field: "character header", Err: domain.ErrCharacterNotFound}
	}
	if !nameFound {
		name = requestedName
	}
	level, raceClass := splitLevelRaceClass(lrc)
	specText, _ := firstText(root, specializationSelectors...)

	sheet := &domain.CharacterSheet{
		Name:           name,
		Level:          level,
		RaceClass:      raceClass,
		SpecText:       specText,
		ProfileURL:     profileURL,
		GearSlots:      parseGear(root, baseURL),
		Stats:          parseStats(root),
		Professions:    parseProfessions(root),
		RecentActivity: parseActivity(root),
	}
	if thumb, ok := firstAttr(root, "src", profileThumbSelectors...); ok {
		sheet.ThumbnailURL = absURL(baseURL, thumb)
	}
	return sheet, nil
}

func parseGear(root *goquery.Selection, baseURL string) map[string]domain.GearItem {
	gear := make(map[string]domain.GearItem, len(domain.AllSlots()))
	for _, slot := range domain.AllSlots() {
		gear[slot] = domain.EmptyGearItem()
	}
	for _, region := range gearRegions {
		root.Find(region.selector).Each(func(i int, s *goquery.Selection) {
			// extra tiles beyond the fixed slot names are ignored
			if i >= len(region.slots) {
				return
			}
			gear[region.slots[i]] = parseSlot(s, baseURL)
		})
	}
	return gear
}

func parseSlot(s *goquery.Selection, baseURL string) domain.GearItem {
	item := domain.EmptyGearItem()
	link := s.Find("a[href]").First()
	if link.Length() == 0 {
		return item
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	item.Href = &href
	if m := itemIDRe.FindStringSubmatch(href); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			item.ItemID = &id
		}
	}

	img := s.Find("img").First()
	item.IconURL = absURL(baseURL, img.AttrOr("src", ""))

	name := strings.TrimSpace(link.AttrOr("title", ""))
	if name == "" {
		name = strings.TrimSpace(img.AttrOr("alt", ""))
	}
	if name == "" {
		if item.ItemID != nil {
			name = "Item " + strconv.Itoa(*item.ItemID)
		} else {
			name = "Unknown"
		}
	}
	item.Name = &name
	item.Quality = slotQuality(s, link)

	rel := link.AttrOr("rel", "")
	if m := enchantRe.FindStringSubmatch(rel); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			item.EnchantID = &id
		}
	}
	if m := gemsRe.FindStringSubmatch(rel); m != nil {
		for _, part := range strings.Split(m[1], ":") {
			if id, err := strconv.Atoi(part); err == nil && id > 0 {
				item.GemIDs = append(item.GemIDs, id)
			}
		}
	}
	return item
}

// slotQuality prefers the icon-qualityN class and falls back to the link's inline colour.
func slotQuality(slot, link *goquery.Selection) domain.Quality {
	if cls, ok := slot.Find("div.icon-quality").First().Attr("class"); ok {
		for _, token := range strings.Fields(cls) {
			m := qualityIdxRe.FindStringSubmatch(token)
			if m == nil {
				continue
			}
			idx, _ := strconv.Atoi(m[1])
			if idx < len(domain.Qualities) {
				return domain.Qualities[idx]
			}
		}
	}
	return qualityFromStyle(link.AttrOr("style", ""))
}

func qualityFromStyle(style string) domain.Quality {
	style = strings.ToLower(style)
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(style, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case has("#ff8000", "orange"):
		return domain.QualityLegendary
	case has("#a335ee", "purple"):
		return domain.QualityEpic
	case has("#0070dd", "blue"):
		return domain.QualityRare
	case has("#1eff00", "green"):
		return domain.QualityUncommon
	case has("#9d9d9d", "gray"):
		return domain.QualityPoor
	default:
		return domain.QualityCommon
	}
}

// parseLabels splits "Damage: 1234 - 1456 Hit rating: 120" into label/value pairs.
func parseLabels(text string) map[string]string {
	out := make(map[string]string)
	locs := statLabelRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		label := text[loc[2]:loc[3]]
		if v := strings.TrimSpace(text[loc[1]:end]); v != "" {
			out[label] = v
		}
	}
	return out
}

func parseStats(root *goquery.Selection) domain.Stats {
	var stats domain.Stats
	root.Find(".character-stats .stub .text").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		switch {
		case strings.HasPrefix(text, "Melee"):
			kv := parseLabels(text)
			stats.Melee = &domain.MeleeStats{Damage: kv["Damage"], Hit: kv["Hit rating"], Crit: kv["Critical"]}
		case strings.HasPrefix(text, "Ranged"):
			kv := parseLabels(text)
			stats.Ranged = &domain.MeleeStats{Damage: kv["Damage"], Hit: kv["Hit rating"], Crit: kv["Critical"]}
		case strings.HasPrefix(text, "Spell"):
			kv := parseLabels(text)
			stats.Spell = &domain.SpellStats{Power: kv["Power"], Haste: kv["Haste"], Hit: kv["Hit rating"], Crit: kv["Critical"]}
		case strings.HasPrefix(text, "Attributes"):
			kv := parseLabels(text)
			stats.Attributes = &domain.AttributeStats{Intellect: kv["Intellect"], Stamina: kv["Stamina"], Spirit: kv["Spirit"]}
		}
	})
	return stats
}

func parseProfessions(root *goquery.Selection) []domain.Profession {
	out := []domain.Profession{}
	root.Find(".profskills .stub .text").Each(func(_ int, s *goquery.Selection) {
		m := professionRe.FindStringSubmatch(collapse(s.Text()))
		if m == nil {
			return
		}
		out = append(out, domain.Profession{
			Name:  strings.TrimSpace(m[1]),
			Value: whitespaceRe.ReplaceAllString(m[2], ""),
		})
	})
	return out
}

func parseActivity(root *goquery.Selection) []domain.Activity {
	out := []domain.Activity{}
	root.Find(".recent-activity .stub .text").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		var when string
		if m := whenRe.FindStringSubmatch(text); m != nil {
			when = m[1]
			text = strings.Replace(text, when, "", 1)
		}
		title := earnedRe.ReplaceAllString(strings.TrimSpace(text), "")
		title = strings.TrimSpace(achievementRe.ReplaceAllString(title, ""))
		if title == "" {
			return
		}
		out = append(out, domain.Activity{Title: title, When: when})
	})
	return out
}
