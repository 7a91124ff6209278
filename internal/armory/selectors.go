package armory

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/pkg/utils"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// collapse trims s and folds every whitespace run into one space.
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// firstText tries each selector in order and returns the first non-empty text.
func firstText(root *goquery.Selection, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		if t := collapse(root.Find(sel).First().Text()); t != "" {
			return t, true
		}
	}
	return "", false
}

// firstAttr tries each selector in order and returns the first non-empty attribute value.
func firstAttr(root *goquery.Selection, attr string, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		if v, ok := root.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// anyPresent reports whether at least one selector matches.
func anyPresent(root *goquery.Selection, selectors ...string) bool {
	for _, sel := range selectors {
		if root.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// Header selectors shared by the summary and talents pages, most specific first.
var (
	nameSelectors           = []string{".information .information-left .name", "div.name"}
	levelRaceClassSelectors = []string{".information .level-race-class", ".level-race-class"}
	profileMarkerSelectors  = []string{"#character-profile"}
	talentsMarkerSelectors  = []string{".talent-frame", "table.talent-spec-switch"}
	profileThumbSelectors   = []string{"#character-profile .item-left .item-slot img", "img.character-portrait"}
	talentsThumbSelectors   = []string{"img.character-portrait", "#character-profile .item-left .item-slot img"}
	specializationSelectors = []string{".specialization .stub .text", ".specialization .text"}
)

var (
	levelRe       = regexp.MustCompile(`(?i)Level\s+(\d+)`)
	levelPrefixRe = regexp.MustCompile(`(?i)Level\s+\d+\s+`)
	guildSuffixRe = regexp.MustCompile(`,\s*.*$`)
)

// splitLevelRaceClass turns "Level 80 Human Paladin, Icecrown" into ("Level 80", "Human Paladin").
func splitLevelRaceClass(raw string) (level, raceClass string) {
	if m := levelRe.FindStringSubmatch(raw); m != nil {
		level = "Level " + m[1]
	}
	raceClass = levelPrefixRe.ReplaceAllString(raw, "")
	raceClass = strings.TrimSpace(guildSuffixRe.ReplaceAllString(raceClass, ""))
	return level, raceClass
}

// absURL makes an asset reference absolute on https. Protocol-relative and
// root-relative references are resolved against base.
func absURL(base, raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	lower := strings.ToLower(raw)
	var out string
	switch {
	case strings.HasPrefix(lower, "https://"):
		out = raw
	case strings.HasPrefix(lower, "http://"):
		out = "https://" + raw[len("http://"):]
	case strings.HasPrefix(raw, "//"):
		out = "https:" + raw
	default:
		resolved, err := utils.ToAbsoluteURL(base, raw)
		if err != nil {
			return nil
		}
		out = resolved
	}
	return &out
}

// ProfileURL is the canonical summary page of a character.
func ProfileURL(base, name, realm string) string {
	return characterURL(base, name, realm, "summary")
}

// TalentsURL is the canonical talents page of a character.
func TalentsURL(base, name, realm string) string {
	return characterURL(base, name, realm, "talents")
}

func characterURL(base, name, realm, page string) string {
	return strings.TrimRight(base, "/") + "/character/" + escapeComponent(name) + "/" + escapeComponent(realm) + "/" + page
}

// componentUnescaper restores the marks a browser leaves bare in a URI component.
var componentUnescaper = strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

// escapeComponent escapes s the way a browser's encodeURIComponent does, so
// reserved characters such as & + : never split or alter the path.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
