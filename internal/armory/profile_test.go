package armory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

func TestParseProfileFixture(t *testing.T) {
	url := ProfileURL(testBase, "Arthas", "Icecrown")
	sheet, err := ParseProfile(parseFixture(t, "profile.html"), testBase, url, "arthas")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}

	if sheet.Name != "Arthas" || sheet.Level != "Level 80" || sheet.RaceClass != "Human Paladin" {
		t.Fatalf("header = %q %q %q", sheet.Name, sheet.Level, sheet.RaceClass)
	}
	if sheet.SpecText != "Retribution (12/5/54)" {
		t.Errorf("SpecText = %q", sheet.SpecText)
	}
	if sheet.ProfileURL != url {
		t.Errorf("ProfileURL = %q", sheet.ProfileURL)
	}
	if sheet.ThumbnailURL == nil || *sheet.ThumbnailURL != "https://cdn.warmane.com/icons/inv_helmet_96.jpg" {
		t.Errorf("ThumbnailURL = %v", sheet.ThumbnailURL)
	}
	if len(sheet.GearSlots) != 19 {
		t.Fatalf("expected 19 slots, got %d", len(sheet.GearSlots))
	}
	for _, slot := range domain.AllSlots() {
		if _, ok := sheet.GearSlots[slot]; !ok {
			t.Errorf("slot %s missing", slot)
		}
	}

	head := sheet.GearSlots["Head"]
	if head.ItemID == nil || *head.ItemID != 51277 || head.Quality != domain.QualityEpic {
		t.Errorf("Head = %+v", head)
	}
	if head.Name == nil || *head.Name != "Sanctified Lightsworn Helmet" {
		t.Errorf("Head name = %v", head.Name)
	}
	if head.EnchantID == nil || *head.EnchantID != 3817 {
		t.Errorf("Head enchant = %v", head.EnchantID)
	}
	if !reflect.DeepEqual(head.GemIDs, []int{41398, 40111}) {
		t.Errorf("Head gems = %v", head.GemIDs)
	}

	neck := sheet.GearSlots["Neck"]
	if neck.IconURL == nil || *neck.IconURL != "https://armory.warmane.com/icons/inv_jewelry_necklace_ahnqiraj_03.jpg" {
		t.Errorf("Neck icon = %v", neck.IconURL)
	}
	if neck.Quality != domain.QualityCommon {
		t.Errorf("Neck quality = %s", neck.Quality)
	}

	back := sheet.GearSlots["Back"]
	if back.Name == nil || *back.Name != "Cloak of Burning Dusk" || back.Quality != domain.QualityEpic {
		t.Errorf("Back = %+v", back)
	}

	ring := sheet.GearSlots["Ring1"]
	if ring.Name == nil || *ring.Name != "Item 50402" || ring.Quality != domain.QualityRare {
		t.Errorf("Ring1 = %+v", ring)
	}

	mh := sheet.GearSlots["MainHand"]
	if mh.Quality != domain.QualityLegendary || mh.EnchantID == nil || *mh.EnchantID != 3789 || len(mh.GemIDs) != 0 {
		t.Errorf("MainHand = %+v", mh)
	}

	if !reflect.DeepEqual(sheet.GearSlots["Shoulder"], domain.EmptyGearItem()) {
		t.Errorf("Shoulder = %+v", sheet.GearSlots["Shoulder"])
	}
}

func TestParseProfileStats(t *testing.T) {
	sheet, err := ParseProfile(parseFixture(t, "profile.html"), testBase, "u", "Arthas")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}

	want := domain.Stats{
		Melee:      &domain.MeleeStats{Damage: "1543 - 1891", Hit: "263", Crit: "38.12%"},
		Spell:      &domain.SpellStats{Power: "512", Haste: "4.10%", Hit: "263", Crit: "12.02%"},
		Attributes: &domain.AttributeStats{Intellect: "180", Stamina: "1902", Spirit: "199"},
	}
	if !reflect.DeepEqual(sheet.Stats, want) {
		got, _ := json.Marshal(sheet.Stats)
		t.Errorf("Stats = %s", got)
	}

	wantProfs := []domain.Profession{{Name: "Blacksmithing", Value: "450/450"}, {Name: "Mining", Value: "443/450"}}
	if !reflect.DeepEqual(sheet.Professions, wantProfs) {
		t.Errorf("Professions = %+v", sheet.Professions)
	}

	wantActivity := []domain.Activity{{Title: "the The Light of Dawn", When: "3 days ago"}}
	if !reflect.DeepEqual(sheet.RecentActivity, wantActivity) {
		t.Errorf("RecentActivity = %+v", sheet.RecentActivity)
	}
}

func TestParseProfileMainHandOnly(t *testing.T) {
	page := `<html><body><div id="character-profile">
		<div class="information"><div class="information-left"><div class="name">Solo</div></div></div>
		<div class="item-model">
			<div class="item-left"></div>
			<div class="item-right"></div>
			<div class="item-bottom">
				<div class="item-slot"><div class="icon-quality icon-quality4"></div>
					<a href="https://wotlk.cavernoftime.com/item=50415" title="Bryntroll"><img src="https://x/i.jpg"></a>
				</div>
			</div>
		</div>
	</div></body></html>`

	sheet, err := ParseProfile(parseHTML(t, []byte(page)), testBase, "u", "Solo")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	mh := sheet.GearSlots["MainHand"]
	if mh.Quality != domain.QualityEpic || mh.ItemID == nil || *mh.ItemID != 50415 {
		t.Fatalf("MainHand = %+v", mh)
	}
	for _, slot := range domain.AllSlots() {
		if slot == "MainHand" {
			continue
		}
		if !reflect.DeepEqual(sheet.GearSlots[slot], domain.EmptyGearItem()) {
			t.Errorf("slot %s = %+v, want default", slot, sheet.GearSlots[slot])
		}
	}
	if sheet.RaceClass != "" || sheet.Level != "" {
		t.Errorf("missing header fields should stay empty, got %q %q", sheet.Level, sheet.RaceClass)
	}
}

func TestParseProfileFallsBackToRequestedName(t *testing.T) {
	page := `<html><body><div id="character-profile"></div></body></html>`
	sheet, err := ParseProfile(parseHTML(t, []byte(page)), testBase, "u", "Jaina")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if sheet.Name != "Jaina" {
		t.Errorf("Name = %q", sheet.Name)
	}
	if len(sheet.Professions) != 0 || len(sheet.RecentActivity) != 0 {
		t.Errorf("expected empty lists, got %+v %+v", sheet.Professions, sheet.RecentActivity)
	}
}

func TestParseProfileNotFound(t *testing.T) {
	_, err := ParseProfile(parseFixture(t, "notfound.html"), testBase, "u", "Nobody")
	if !errors.Is(err, domain.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}
	if !domain.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestQualityFromStyle(t *testing.T) {
	tests := []struct {
		style string
		want  domain.Quality
	}{
		{"color: #FF8000", domain.QualityLegendary},
		{"color:orange", domain.QualityLegendary},
		{"color: #a335ee;", domain.QualityEpic},
		{"color: purple", domain.QualityEpic},
		{"color: #0070dd", domain.QualityRare},
		{"color: #1eff00", domain.QualityUncommon},
		{"color: green", domain.QualityUncommon},
		{"color: #9d9d9d", domain.QualityPoor},
		{"color: #ffffff", domain.QualityCommon},
		{"", domain.QualityCommon},
	}
	for _, tt := range tests {
		if got := qualityFromStyle(tt.style); got != tt.want {
			t.Errorf("qualityFromStyle(%q) = %s, want %s", tt.style, got, tt.want)
		}
	}
}

func TestParseLabels(t *testing.T) {
	got := parseLabels("Melee Damage: 1543 - 1891 Hit rating: 263 Critical: 38.12%")
	want := map[string]string{"Damage": "1543 - 1891", "Hit rating": "263", "Critical": "38.12%"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseLabels = %v", got)
	}
}

func TestAbsURL(t *testing.T) {
	tests := map[string]string{
		"//cdn.example.com/a.jpg":   "https://cdn.example.com/a.jpg",
		"/icons/a.jpg":              "https://armory.warmane.com/icons/a.jpg",
		"http://cdn.example.com/a":  "https://cdn.example.com/a",
		"https://cdn.example.com/a": "https://cdn.example.com/a",
	}
	for in, want := range tests {
		got := absURL(testBase, in)
		if got == nil || *got != want {
			t.Errorf("absURL(%q) = %v, want %s", in, got, want)
		}
	}
	if absURL(testBase, "  ") != nil {
		t.Error("blank reference should yield nil")
	}
}

func TestProfileURLEscapes(t *testing.T) {
	got := ProfileURL(testBase+"/", "Ärthas", "Lord of Ashes")
	want := "https://armory.warmane.com/character/%C3%84rthas/Lord%20of%20Ashes/summary"
	if got != want {
		t.Errorf("ProfileURL = %q, want %q", got, want)
	}
}

func TestProfileURLEscapesReservedCharacters(t *testing.T) {
	tests := map[string]string{
		"A+B":        "A%2BB",
		"Tom&Jerry":  "Tom%26Jerry",
		"a=b:c@d":    "a%3Db%3Ac%40d",
		"$,;":        "%24%2C%3B",
		"it's (ok)*": "it's%20(ok)*",
		"x/y?z#":     "x%2Fy%3Fz%23",
	}
	for name, escaped := range tests {
		got := ProfileURL(testBase, name, "Icecrown")
		want := testBase + "/character/" + escaped + "/Icecrown/summary"
		if got != want {
			t.Errorf("ProfileURL(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSlotQualityMatchesWholeClassToken(t *testing.T) {
	tests := []struct {
		class string
		style string
		want  domain.Quality
	}{
		{"icon-quality icon-quality4", "", domain.QualityEpic},
		{"icon-quality icon-quality12", "color: #0070dd", domain.QualityRare},
		{"icon-quality xicon-quality5", "", domain.QualityCommon},
		{"icon-quality icon-quality9", "color: #a335ee", domain.QualityEpic},
	}
	for _, tt := range tests {
		html := `<div class="item-slot"><a style="` + tt.style + `"><div class="` + tt.class + `"></div></a></div>`
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		slot := doc.Find("div.item-slot")
		if got := slotQuality(slot, slot.Find("a")); got != tt.want {
			t.Errorf("slotQuality(class %q, style %q) = %s, want %s", tt.class, tt.style, got, tt.want)
		}
	}
}

type stubResolver struct {
	calls []int
	meta  map[int]domain.ItemMeta
}

func (r *stubResolver) Resolve(_ context.Context, id int) domain.ItemMeta {
	r.calls = append(r.calls, id)
	return r.meta[id]
}

func TestProfileExtractCachesSheet(t *testing.T) {
	srv, hits := countingServer(t, map[string][]byte{
		"/character/Arthas/Icecrown/summary": readFixture(t, "profile.html"),
	})
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ex := NewProfileExtractor(srv.URL, newTestClient(t), newPageCache(t, clock), nil, zap.NewNop())
	ctx := context.Background()

	first, err := ex.Extract(ctx, "Arthas", "Icecrown")
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	clock.now = clock.now.Add(10 * time.Minute)
	second, err := ex.Extract(ctx, "Arthas", "Icecrown")
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}

	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 upstream request, got %d", n)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("cached sheet differs:\n%s\n%s", a, b)
	}

	clock.now = clock.now.Add(21 * time.Minute)
	if _, err := ex.Extract(ctx, "Arthas", "Icecrown"); err != nil {
		t.Fatalf("third Extract: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected a refetch after expiry, got %d requests", n)
	}
}

func TestProfileExtractEnrichesGear(t *testing.T) {
	srv, _ := countingServer(t, map[string][]byte{
		"/character/Arthas/Icecrown/summary": readFixture(t, "profile.html"),
	})
	name, ilvl := "Shadowmourne (Heroic)", 284
	resolver := &stubResolver{meta: map[int]domain.ItemMeta{49623: {Name: &name, ILvl: &ilvl}}}
	clock := &testClock{now: time.Now()}
	ex := NewProfileExtractor(srv.URL, newTestClient(t), newPageCache(t, clock), resolver, zap.NewNop())

	sheet, err := ex.Extract(context.Background(), "Arthas", "Icecrown")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	wantCalls := []int{51277, 50728, 50677, 50402, 49623}
	if !reflect.DeepEqual(resolver.calls, wantCalls) {
		t.Errorf("resolve order = %v, want %v", resolver.calls, wantCalls)
	}
	mh := sheet.GearSlots["MainHand"]
	if *mh.Name != name || mh.ILvl == nil || *mh.ILvl != ilvl {
		t.Errorf("MainHand = %+v", mh)
	}
	head := sheet.GearSlots["Head"]
	if *head.Name != "Sanctified Lightsworn Helmet" || head.ILvl != nil {
		t.Errorf("Head should keep page values, got %+v", head)
	}
}

func TestProfileExtractNotFound(t *testing.T) {
	srv, _ := countingServer(t, nil)
	ex := NewProfileExtractor(srv.URL, newTestClient(t), newPageCache(t, &testClock{now: time.Now()}), nil, zap.NewNop())

	_, err := ex.Extract(context.Background(), "Nobody", "Icecrown")
	if err == nil || !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestProfileExtractCachesSlowFetchPastDeadline(t *testing.T) {
	body := readFixture(t, "profile.html")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	ex := NewProfileExtractor(srv.URL, newTestClient(t), newPageCache(t, &testClock{now: time.Now()}), nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ex.Extract(ctx, "Arthas", "Icecrown"); err != nil {
		t.Fatalf("Extract past deadline: %v", err)
	}
	if _, err := ex.Extract(context.Background(), "Arthas", "Icecrown"); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("upstream hits = %d, want 1: sheet fetched after the deadline was not cached", n)
	}
}
