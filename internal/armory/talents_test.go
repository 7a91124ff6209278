package armory

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

func TestParseTalentsFixture(t *testing.T) {
	url := TalentsURL(testBase, "Arthas", "Icecrown")
	set, err := ParseTalents(parseFixture(t, "talents.html"), testBase, url, "Arthas", "Icecrown")
	if err != nil {
		t.Fatalf("ParseTalents: %v", err)
	}

	if set.CharName != "Arthas" || set.RaceClass != "Human Paladin" || set.TalentsURL != url {
		t.Errorf("header = %q %q %q", set.CharName, set.RaceClass, set.TalentsURL)
	}
	if set.ProfileURL != "https://armory.warmane.com/character/Arthas/Icecrown/summary" {
		t.Errorf("ProfileURL = %q", set.ProfileURL)
	}
	if set.ThumbnailURL == nil || *set.ThumbnailURL != "https://cdn.warmane.com/portraits/human_male.jpg" {
		t.Errorf("ThumbnailURL = %v", set.ThumbnailURL)
	}

	wantGlyphs := domain.Glyphs{
		Major: []string{"Glyph of Seal of Command", "Glyph of Exorcism"},
		Minor: []string{"Glyph of Sense Undead"},
	}
	if !reflect.DeepEqual(set.Glyphs, wantGlyphs) {
		t.Errorf("Glyphs = %+v", set.Glyphs)
	}

	if len(set.Trees) != 3 {
		t.Fatalf("expected 3 trees, got %d", len(set.Trees))
	}
	wantPoints := map[string]int{"Holy": 12, "Protection": 5, "Retribution": 54}
	if !reflect.DeepEqual(set.Points, wantPoints) {
		t.Errorf("Points = %v", set.Points)
	}
	if set.SpecName != "Retribution" {
		t.Errorf("SpecName = %q", set.SpecName)
	}

	holy := set.Trees[0]
	if len(holy.Tiers) != 2 || len(holy.Tiers[0]) != 2 || len(holy.Tiers[1]) != 1 {
		t.Fatalf("Holy tiers = %+v", holy.Tiers)
	}
	first := holy.Tiers[0][0]
	if first.Position != (domain.Position{Tier: 0, Column: 1}) || first.Rank != 5 || first.Max != 5 || first.State != domain.TalentPoints {
		t.Errorf("first talent = %+v", first)
	}
	if first.IconURL == nil || *first.IconURL != "https://cdn.warmane.com/talents/spell_holy_holybolt.jpg" {
		t.Errorf("first icon = %v", first.IconURL)
	}
	second := holy.Tiers[0][1]
	if second.State != domain.TalentMax || second.IconURL == nil || *second.IconURL != "https://armory.warmane.com/talents/spell_holy_sealofwisdom.jpg" {
		t.Errorf("second talent = %+v", second)
	}
	locked := holy.Tiers[1][0]
	if locked.State != domain.TalentDisabled || locked.Rank != 0 || locked.Max != 3 || locked.Position != (domain.Position{Tier: 1, Column: 0}) {
		t.Errorf("locked talent = %+v", locked)
	}
	if locked.IconURL != nil {
		t.Errorf("talent without style should have no icon, got %v", *locked.IconURL)
	}

	ret := set.Trees[2].Tiers[0][0]
	if ret.Position.Column != 3 || ret.State != domain.TalentMax {
		t.Errorf("Retribution talent = %+v", ret)
	}
}

func TestParseTalentsPadsMissingTrees(t *testing.T) {
	page := `<html><body>
		<div class="information"><div class="information-left"><div class="name">Thrall</div></div></div>
		<div id="spec-0"><div class="talent-frame"><div class="talent-tree-info">Beast Mastery 31</div></div></div>
	</body></html>`
	set, err := ParseTalents(parseHTML(t, []byte(page)), testBase, "u", "Thrall", "Icecrown")
	if err != nil {
		t.Fatalf("ParseTalents: %v", err)
	}
	if len(set.Trees) != 3 {
		t.Fatalf("expected 3 trees, got %d", len(set.Trees))
	}
	if set.Trees[0].Name != "Beast Mastery" || set.Trees[0].Points != 31 {
		t.Errorf("first tree = %+v", set.Trees[0])
	}
	for _, tree := range set.Trees[1:] {
		if tree.Name != "Tree" || tree.Points != 0 || len(tree.Tiers) != 0 {
			t.Errorf("padding tree = %+v", tree)
		}
	}
	if !reflect.DeepEqual(set.Points, map[string]int{"Beast Mastery": 31}) {
		t.Errorf("Points = %v", set.Points)
	}
	if set.SpecName != "Beast Mastery" {
		t.Errorf("SpecName = %q", set.SpecName)
	}
	if set.ProfileURL != ProfileURL(testBase, "Thrall", "Icecrown") {
		t.Errorf("ProfileURL = %q", set.ProfileURL)
	}
	if len(set.Glyphs.Major) != 0 || len(set.Glyphs.Minor) != 0 {
		t.Errorf("Glyphs = %+v", set.Glyphs)
	}
}

func TestParseTalentsNotFound(t *testing.T) {
	_, err := ParseTalents(parseFixture(t, "notfound.html"), testBase, "u", "Nobody", "Icecrown")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDominantTree(t *testing.T) {
	tests := []struct {
		name  string
		trees []domain.TalentTree
		want  string
	}{
		{"most points", []domain.TalentTree{{Name: "Holy", Points: 12}, {Name: "Protection", Points: 5}, {Name: "Retribution", Points: 54}}, "Retribution"},
		{"tie keeps first", []domain.TalentTree{{Name: "Arcane", Points: 20}, {Name: "Fire", Points: 20}, {Name: "Frost", Points: 0}}, "Arcane"},
		{"all zero", []domain.TalentTree{{Name: "Blood"}, {Name: "Frost"}, {Name: "Unholy"}}, "Blood"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dominantTree(tt.trees); got != tt.want {
				t.Errorf("dominantTree = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTalentExtractCachesSet(t *testing.T) {
	srv, hits := countingServer(t, map[string][]byte{
		"/character/Arthas/Icecrown/talents": readFixture(t, "talents.html"),
	})
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ex := NewTalentExtractor(srv.URL, newTestClient(t), newPageCache(t, clock), zap.NewNop())
	ctx := context.Background()

	first, err := ex.Extract(ctx, "Arthas", "Icecrown")
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
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
		t.Errorf("cached set differs:\n%s\n%s", a, b)
	}
}
