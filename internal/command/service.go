// Package command runs the armory and talents commands and shapes their replies.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/layout"
	"github.com/user/armory-card/internal/monitoring"
	"github.com/user/armory-card/internal/render"
	"go.uber.org/zap"
)

const (
	Armory  = "armory"
	Talents = "talents"
)

// GenericFailure is shown for any failure other than a missing character.
const GenericFailure = "An error occurred while processing your request."

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingCharacter = errors.New("character name is required")
)

// ProfileSource yields character sheets.
type ProfileSource interface {
	Extract(ctx context.Context, name, realm string) (*domain.CharacterSheet, error)
}

// TalentSource yields talent sets.
type TalentSource interface {
	Extract(ctx context.Context, name, realm string) (*domain.TalentSet, error)
}

// Link is a labelled URL button under a reply.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Reply is a rendered command result. A failure reply carries only Content.
type Reply struct {
	Content     string `json:"content,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Footer      string `json:"footer,omitempty"`
	Links       []Link `json:"links,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Image       []byte `json:"image,omitempty"`
}

// Service resolves a character, lays the card out and renders it.
type Service struct {
	profiles     ProfileSource
	talents      TalentSource
	engine       *layout.Engine
	renderer     render.Renderer
	defaultRealm string
	metrics      *monitoring.Metrics
	logger       *zap.Logger
}

func NewService(p ProfileSource, t TalentSource, e *layout.Engine, r render.Renderer, defaultRealm string, m *monitoring.Metrics, l *zap.Logger) *Service {
	return &Service{
		profiles:     p,
		talents:      t,
		engine:       e,
		renderer:     r,
		defaultRealm: defaultRealm,
		metrics:      m,
		logger:       l,
	}
}

// Normalize trims the request and fills in the default realm.
func (s *Service) Normalize(req domain.CommandRequest) (domain.CommandRequest, error) {
	req.Character = strings.TrimSpace(req.Character)
	req.Realm = strings.TrimSpace(req.Realm)
	if req.Realm == "" {
		req.Realm = s.defaultRealm
	}
	if req.Character == "" {
		return req, ErrMissingCharacter
	}
	return req, nil
}

// Execute runs command for req.
func (s *Service) Execute(ctx context.Context, command string, req domain.CommandRequest) (*Reply, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	switch command {
	case Armory:
		reply, err = s.armory(ctx, req)
	case Talents:
		reply, err = s.talentsCard(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if domain.IsNotFound(err) {
		s.metrics.IncCommand(command, "not_found")
		return nil, err
	}
	if err != nil {
		s.metrics.IncCommand(command, "failed")
		s.logger.Warn("command failed",
			zap.String("command", command),
			zap.String("character", req.Character),
			zap.String("realm", req.Realm),
			zap.Error(err))
		return nil, err
	}
	s.metrics.IncCommand(command, "ok")
	return reply, nil
}

func (s *Service) armory(ctx context.Context, req domain.CommandRequest) (*Reply, error) {
	sheet, err := s.profiles.Extract(ctx, req.Character, req.Realm)
	if err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(ctx, s.engine.LayoutGear(sheet))
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		Title:  sheet.Name + " — " + sheet.RaceClass,
		URL:    sheet.ProfileURL,
		Footer: footer(req.Realm),
		Links: []Link{
			{Label: "Open Armory", URL: sheet.ProfileURL},
			{Label: "Talents", URL: strings.Replace(sheet.ProfileURL, "/summary", "/talents", 1)},
		},
		Filename: "armory.png",
		Image:    img,
	}
	if sheet.SpecText != "" {
		reply.Description = "**Spec:** " + sheet.SpecText
	}
	return reply, nil
}

func (s *Service) talentsCard(ctx context.Context, req domain.CommandRequest) (*Reply, error) {
	set, err := s.talents.Extract(ctx, req.Character, req.Realm)
	if err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(ctx, s.engine.LayoutTalents(set))
	if err != nil {
		return nil, err
	}

	return &Reply{
		Title:       set.CharName + " — " + set.RaceClass,
		URL:         set.TalentsURL,
		Description: TreesLine(set.Trees),
		Footer:      footer(req.Realm),
		Links: []Link{
			{Label: "Open Talents", URL: set.TalentsURL},
			{Label: "Open Armory", URL: set.ProfileURL},
		},
		Filename: "talents.png",
		Image:    img,
	}, nil
}

// TreesLine summarises trees as "Holy **12** • Protection **5** • Retribution **54**".
func TreesLine(trees []domain.TalentTree) string {
	parts := make([]string, 0, len(trees))
	for _, t := range trees {
		parts = append(parts, t.Name+" **"+strconv.Itoa(t.Points)+"**")
	}
	return strings.Join(parts, " • ")
}

func footer(realm string) string {
	return "Warmane-style • " + realm
}

// FailureReply is the message shown when a command for req fails with err.
func (s *Service) FailureReply(req domain.CommandRequest, err error) *Reply {
	req, _ = s.Normalize(req)
	if domain.IsNotFound(err) {
		return &Reply{Content: fmt.Sprintf("Could not find **%s** on **%s**.", req.Character, req.Realm)}
	}
	if errors.Is(err, ErrMissingCharacter) || errors.Is(err, ErrUnknownCommand) {
		return &Reply{Content: err.Error()}
	}
	return &Reply{Content: GenericFailure}
}
