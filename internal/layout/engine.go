package layout

import "github.com/user/armory-card/internal/domain"

// Engine lays cards out with a fixed text measurer.
type Engine struct {
	measurer Measurer
}

func NewEngine(m Measurer) *Engine {
	return &Engine{measurer: m}
}

func (e *Engine) LayoutGear(sheet *domain.CharacterSheet) *Plan {
	return LayoutGear(sheet, e.measurer)
}

func (e *Engine) LayoutTalents(set *domain.TalentSet) *Plan {
	return LayoutTalents(set, e.measurer)
}
