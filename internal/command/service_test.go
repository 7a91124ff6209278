package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/layout"
	"go.uber.org/zap"
)

type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, _ layout.Font) float64 {
	return float64(utf8.RuneCountInString(text) * 8)
}

type fakeProfiles struct {
	mu    sync.Mutex
	calls []string
	sheet *domain.CharacterSheet
	err   error
}

func (f *fakeProfiles) Extract(_ context.Context, name, realm string) (*domain.CharacterSheet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+"@"+realm)
	f.mu.Unlock()
	return f.sheet, f.err
}

type fakeTalents struct {
	set *domain.TalentSet
	err error
}

func (f *fakeTalents) Extract(_ context.Context, _, _ string) (*domain.TalentSet, error) {
	return f.set, f.err
}

type fakeRenderer struct {
	cards []string
	err   error
}

func (r *fakeRenderer) Name() string { return "fake" }

func (r *fakeRenderer) Render(_ context.Context, p *layout.Plan) ([]byte, error) {
	r.cards = append(r.cards, p.Name)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + p.Name), nil
}

func testSheet() *domain.CharacterSheet {
	return &domain.CharacterSheet{
		Name:       "Arthas",
		Level:      "80",
		RaceClass:  "Human Paladin",
		SpecText:   "Retribution (12/5/54)",
		ProfileURL: "https://armory.warmane.com/character/Arthas/Icecrown/summary",
		GearSlots:  map[string]domain.GearItem{},
	}
}

func testTalentSet() *domain.TalentSet {
	return &domain.TalentSet{
		TalentsURL: "https://armory.warmane.com/character/Arthas/Icecrown/talents",
		ProfileURL: "https://armory.warmane.com/character/Arthas/Icecrown/summary",
		CharName:   "Arthas",
		RaceClass:  "Human Paladin",
		Trees: []domain.TalentTree{
			{Name: "Holy", Points: 12},
			{Name: "Protection", Points: 5},
			{Name: "Retribution", Points: 54},
		},
		Glyphs:   domain.Glyphs{Major: []string{"Glyph of Seal of Command"}, Minor: []string{}},
		SpecName: "Retribution",
	}
}

func newTestService(p ProfileSource, t TalentSource, r *fakeRenderer) *Service {
	return NewService(p, t, layout.NewEngine(fixedMeasurer{}), r, "Icecrown", nil, zap.NewNop())
}

func TestExecuteArmory(t *testing.T) {
	profiles := &fakeProfiles{sheet: testSheet()}
	r := &fakeRenderer{}
	svc := newTestService(profiles, &fakeTalents{}, r)

	reply, err := svc.Execute(context.Background(), Armory, domain.CommandRequest{Character: "  Arthas "})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := profiles.calls; len(got) != 1 || got[0] != "Arthas@Icecrown" {
		t.Errorf("extract calls = %v, want [Arthas@Icecrown]", got)
	}
	if reply.Title != "Arthas — Human Paladin" {
		t.Errorf("title = %q", reply.Title)
	}
	if reply.Description != "**Spec:** Retribution (12/5/54)" {
		t.Errorf("description = %q", reply.Description)
	}
	if reply.Footer != "Warmane-style • Icecrown" {
		t.Errorf("footer = %q", reply.Footer)
	}
	if reply.Filename != "armory.png" || string(reply.Image) != "png:gear" {
		t.Errorf("attachment = %q %q", reply.Filename, reply.Image)
	}
	if len(reply.Links) != 2 || reply.Links[1].URL != "https://armory.warmane.com/character/Arthas/Icecrown/talents" {
		t.Errorf("links = %+v", reply.Links)
	}
}

func TestExecuteArmoryWithoutSpec(t *testing.T) {
	sheet := testSheet()
	sheet.SpecText = ""
	svc := newTestService(&fakeProfiles{sheet: sheet}, &fakeTalents{}, &fakeRenderer{})

	reply, err := svc.Execute(context.Background(), Armory, domain.CommandRequest{Character: "Arthas", Realm: "Lordaeron"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reply.Description != "" {
		t.Errorf("description = %q, want empty", reply.Description)
	}
	if reply.Footer != "Warmane-style • Lordaeron" {
		t.Errorf("footer = %q", reply.Footer)
	}
}

func TestExecuteTalents(t *testing.T) {
	r := &fakeRenderer{}
	svc := newTestService(&fakeProfiles{}, &fakeTalents{set: testTalentSet()}, r)

	reply, err := svc.Execute(context.Background(), Talents, domain.CommandRequest{Character: "Arthas"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reply.Description != "Holy **12** • Protection **5** • Retribution **54**" {
		t.Errorf("description = %q", reply.Description)
	}
	if reply.URL != "https://armory.warmane.com/character/Arthas/Icecrown/talents" {
		t.Errorf("url = %q", reply.URL)
	}
	if reply.Filename != "talents.png" || len(r.cards) != 1 || r.cards[0] != "talents" {
		t.Errorf("filename = %q, rendered = %v", reply.Filename, r.cards)
	}
	if reply.Links[0].Label != "Open Talents" || reply.Links[1].Label != "Open Armory" {
		t.Errorf("links = %+v", reply.Links)
	}
}

func TestExecuteValidation(t *testing.T) {
	svc := newTestService(&fakeProfiles{sheet: testSheet()}, &fakeTalents{}, &fakeRenderer{})

	if _, err := svc.Execute(context.Background(), Armory, domain.CommandRequest{Character: "   "}); !errors.Is(err, ErrMissingCharacter) {
		t.Errorf("blank character err = %v, want ErrMissingCharacter", err)
	}
	if _, err := svc.Execute(context.Background(), "gear", domain.CommandRequest{Character: "Arthas"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown command err = %v, want ErrUnknownCommand", err)
	}
}

func TestExecuteRenderFailure(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(&fakeProfiles{sheet: testSheet()}, &fakeTalents{}, &fakeRenderer{err: boom})

	if _, err := svc.Execute(context.Background(), Armory, domain.CommandRequest{Character: "Arthas"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want render error", err)
	}
}

func TestFailureReply(t *testing.T) {
	svc := newTestService(&fakeProfiles{}, &fakeTalents{}, &fakeRenderer{})
	notFound := &domain.UpstreamFormatError{URL: "u", Field: "character header", Err: domain.ErrCharacterNotFound}

	tests := []struct {
		name string
		req  domain.CommandRequest
		err  error
		want string
	}{
		{"not found uses default realm", domain.CommandRequest{Character: "Nobody"}, notFound, "Could not find **Nobody** on **Icecrown**."},
		{"http 404", domain.CommandRequest{Character: "Nobody", Realm: "Lordaeron"}, &domain.UpstreamFetchError{URL: "u", StatusCode: 404}, "Could not find **Nobody** on **Lordaeron**."},
		{"timeout", domain.CommandRequest{Character: "Arthas"}, &domain.TimeoutError{URL: "u"}, GenericFailure},
		{"http 500", domain.CommandRequest{Character: "Arthas"}, &domain.UpstreamFetchError{URL: "u", StatusCode: 500}, GenericFailure},
		{"missing character", domain.CommandRequest{}, ErrMissingCharacter, ErrMissingCharacter.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.FailureReply(tt.req, tt.err)
			if got.Content != tt.want {
				t.Errorf("content = %q, want %q", got.Content, tt.want)
			}
			if got.Title != "" || len(got.Image) != 0 {
				t.Errorf("failure reply carries a card: %+v", got)
			}
		})
	}
}

func TestTreesLine(t *testing.T) {
	if got := TreesLine(nil); got != "" {
		t.Errorf("TreesLine(nil) = %q", got)
	}
	got := TreesLine([]domain.TalentTree{{Name: "Beast Mastery", Points: 31}, {Name: "Tree"}})
	if !strings.HasPrefix(got, "Beast Mastery **31**") || !strings.HasSuffix(got, "Tree **0**") {
		t.Errorf("TreesLine = %q", got)
	}
}
