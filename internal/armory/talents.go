package armory

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/internal/cache"
	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

// treeCount is the number of talent trees every class has.
const treeCount = 3

var (
	treeInfoRe    = regexp.MustCompile(`([A-Za-z][A-Za-z' ]*?)\s+(\d+)`)
	columnClassRe = regexp.MustCompile(`^col([0-3])$`)
	iconStyleRe   = regexp.MustCompile(`url\((.*?)\)`)
	rankRe        = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

// TalentExtractor produces talent sets from armory talents pages, through the page cache.
type TalentExtractor struct {
	baseURL string
	fetcher Fetcher
	cache   PageCache
	logger  *zap.Logger
}

func NewTalentExtractor(baseURL string, f Fetcher, c PageCache, l *zap.Logger) *TalentExtractor {
	return &TalentExtractor{baseURL: baseURL, fetcher: f, cache: c, logger: l}
}

// Extract returns the active talent set for name on realm.
func (e *TalentExtractor) Extract(ctx context.Context, name, realm string) (*domain.TalentSet, error) {
	talentsURL := TalentsURL(e.baseURL, name, realm)
	key := cache.Key(cache.NamespaceTalents, talentsURL)

	var cached domain.TalentSet
	if e.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	body, err := e.fetcher.Get(ctx, "talents", talentsURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.UpstreamFormatError{URL: talentsURL, Field: "document", Err: err}
	}

	set, err := ParseTalents(doc, e.baseURL, talentsURL, name, realm)
	if err != nil {
		return nil, err
	}

	e.cache.Set(ctx, key, set)
	e.logger.Debug("extracted talents",
		zap.String("character", set.CharName),
		zap.String("realm", realm),
		zap.String("spec", set.SpecName))
	return set, nil
}

// ParseTalents reads a talents page. Only the selected specialization is parsed.
// The result always carries exactly three trees; missing ones are named "Tree" with no points.
func ParseTalents(doc *goquery.Document, baseURL, talentsURL, name, realm string) (*domain.TalentSet, error) {
	root := doc.Selection

	charName, nameFound := firstText(root, nameSelectors...)
	lrc, lrcFound := firstText(root, levelRaceClassSelectors...)
	if !nameFound && !lrcFound && !anyPresent(root, talentsMarkerSelectors...) {
		return nil, &domain.UpstreamFormatError{URL: talentsURL, Field: "character header", Err: domain.ErrCharacterNotFound}
	}
	if !nameFound {
		charName = name
	}
	_, raceClass := splitLevelRaceClass(lrc)

	set := &domain.TalentSet{
		TalentsURL: talentsURL,
		ProfileURL: ProfileURL(baseURL, name, realm),
		CharName:   charName,
		RaceClass:  raceClass,
		Points:     map[string]int{},
	}
	if href, ok := firstAttr(root, "href", `a[href*="/summary"]`); ok {
		if u := absURL(baseURL, href); u != nil {
			set.ProfileURL = *u
		}
	}
	if thumb, ok := firstAttr(root, "src", talentsThumbSelectors...); ok {
		set.ThumbnailURL = absURL(baseURL, thumb)
	}

	spec := activeSpec(root)
	set.Glyphs = parseGlyphs(root, spec)

	root.Find(fmt.Sprintf("#spec-%d .talent-frame", spec)).EachWithBreak(func(i int, frame *goquery.Selection) bool {
		if i >= treeCount {
			return false
		}
		tree := parseTree(frame, baseURL)
		set.Trees = append(set.Trees, tree)
		set.Points[tree.Name] = tree.Points
		return true
	})
	set.SpecName = dominantTree(set.Trees)
	for len(set.Trees) < treeCount {
		set.Trees = append(set.Trees, domain.TalentTree{Name: "Tree", Tiers: [][]domain.Talent{}})
	}
	return set, nil
}

// activeSpec is the data-spec index of the selected switch cell, 0 when absent.
func activeSpec(root *goquery.Selection) int {
	raw, ok := root.Find("table.talent-spec-switch td.selected").First().Attr("data-spec")
	if !ok {
		return 0
	}
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 {
		return 0
	}
	return idx
}

func parseGlyphs(root *goquery.Selection, spec int) domain.Glyphs {
	glyphs := domain.Glyphs{Major: []string{}, Minor: []string{}}
	block := root.Find(fmt.Sprintf(`.character-glyphs div[data-glyphs="%d"]`, spec)).First()
	block.Find(".glyph.major a").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			glyphs.Major = append(glyphs.Major, t)
		}
	})
	block.Find(".glyph.minor a").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			glyphs.Minor = append(glyphs.Minor, t)
		}
	})
	return glyphs
}

func parseTree(frame *goquery.Selection, baseURL string) domain.TalentTree {
	tree := domain.TalentTree{Name: "Tree", Tiers: [][]domain.Talent{}}
	body := frame.Find(".talent-tree").First()
	if body.Length() == 0 {
		body = frame
	}
	if m := treeInfoRe.FindStringSubmatch(collapse(frame.Find(".talent-tree-info").First().Text())); m != nil {
		tree.Name = strings.TrimSpace(m[1])
		tree.Points, _ = strconv.Atoi(m[2])
	}

	body.Find(".tier").Each(func(tier int, row *goquery.Selection) {
		talents := []domain.Talent{}
		row.Find("a.talent").Each(func(_ int, a *goquery.Selection) {
			talents = append(talents, parseTalent(a, tier, baseURL))
		})
		tree.Tiers = append(tree.Tiers, talents)
	})
	return tree
}

func parseTalent(a *goquery.Selection, tier int, baseURL string) domain.Talent {
	t := domain.Talent{State: domain.TalentPoints, Position: domain.Position{Tier: tier}}
	for _, cls := range strings.Fields(a.AttrOr("class", "")) {
		if m := columnClassRe.FindStringSubmatch(cls); m != nil {
			t.Position.Column, _ = strconv.Atoi(m[1])
			break
		}
	}
	if m := iconStyleRe.FindStringSubmatch(a.AttrOr("style", "")); m != nil {
		t.IconURL = absURL(baseURL, strings.Trim(m[1], `'" `))
	}

	points := a.Find(".talent-points").First()
	if m := rankRe.FindStringSubmatch(points.Text()); m != nil {
		t.Rank, _ = strconv.Atoi(m[1])
		t.Max, _ = strconv.Atoi(m[2])
	}
	if points.HasClass("disabled") {
		t.State = domain.TalentDisabled
	}
	if points.HasClass("max") {
		t.State = domain.TalentMax
	}
	return t
}

// dominantTree names the tree with the most points. Ties go to the earliest tree.
func dominantTree(trees []domain.TalentTree) string {
	best, bestPoints := "", -1
	for _, t := range trees {
		if t.Points > bestPoints {
			best, bestPoints = t.Name, t.Points
		}
	}
	return best
}
