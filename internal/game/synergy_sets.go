package game

import (
	"fmt"
	"sort"
	"strings"
)

// SynergyEffects are percentage bonuses except DailyWealthBonus, which is
// flat wealth per day.
type SynergyEffects struct {
	WorkMultiplierBonus int `json:"work_multiplier_bonus,omitempty"`
	AttackSuccessBonus  int `json:"attack_success_bonus,omitempty"`
	DefenseBonus        int `json:"defense_bonus,omitempty"`
	WealthTheftBonus    int `json:"wealth_theft_bonus,omitempty"`
	DailyWealthBonus    int `json:"daily_wealth_bonus,omitempty"`
	CounterAttackBonus  int `json:"counter_attack_bonus,omitempty"`
	WealthLossReduction int `json:"wealth_loss_reduction,omitempty"`
}

// stats returns pointers to every effect field so sets can be merged
// field by field.
func (s *SynergyEffects) stats() []*int {
	return []*int{
		&s.WorkMultiplierBonus,
		&s.AttackSuccessBonus,
		&s.DefenseBonus,
		&s.WealthTheftBonus,
		&s.DailyWealthBonus,
		&s.CounterAttackBonus,
		&s.WealthLossReduction,
	}
}

type SynergySet struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	RequiredCategories []Category     `json:"required_categories"`
	MinBusinesses      int            `json:"min_businesses"`
	Effects            SynergyEffects `json:"effects"`
	// Priority decides which set wins when two set the same stat.
	Priority int `json:"priority"`
}

// requiredPerCategory is the count needed in each listed category.
func (s SynergySet) requiredPerCategory() int {
	if len(s.RequiredCategories) <= 1 {
		return s.MinBusinesses
	}
	return (s.MinBusinesses + len(s.RequiredCategories) - 1) / len(s.RequiredCategories)
}

func (s SynergySet) satisfied(counts map[Category]int) bool {
	need := s.requiredPerCategory()
	for _, cat := range s.RequiredCategories {
		if counts[cat] < need {
			return false
		}
	}
	return true
}

// SynergySets is the table of named portfolio sets.
var SynergySets = []SynergySet{
	{
		ID:                 "defensive_alliance",
		Name:               "Defensive Alliance",
		Description:        "Multiple defensive businesses enhance counter-attacks and reduce wealth loss.",
		RequiredCategories: []Category{CategoryDefensive},
		MinBusinesses:      2,
		Effects:            SynergyEffects{CounterAttackBonus: 15, WealthLossReduction: 25, DefenseBonus: 10},
		Priority:           2,
	},
	{
		ID:                 "offensive_coalition",
		Name:               "Offensive Coalition",
		Description:        "Coordinated offensive businesses increase attack success and wealth theft.",
		RequiredCategories: []Category{CategoryOffensive},
		MinBusinesses:      2,
		Effects:            SynergyEffects{AttackSuccessBonus: 20, WealthTheftBonus: 15},
		Priority:           2,
	},
	{
		ID:                 "efficiency_network",
		Name:               "Efficiency Network",
		Description:        "Interconnected efficiency businesses boost work output.",
		RequiredCategories: []Category{CategoryEfficiency},
		MinBusinesses:      2,
		Effects:            SynergyEffects{WorkMultiplierBonus: 25},
		Priority:           2,
	},
	{
		ID:                 "economic_empire",
		Name:               "Economic Empire",
		Description:        "A diversified utility empire generates passive wealth.",
		RequiredCategories: []Category{CategoryUtility},
		MinBusinesses:      3,
		Effects:            SynergyEffects{DailyWealthBonus: 2, WorkMultiplierBonus: 15},
		Priority:           3,
	},
	{
		ID:                 "complete_monopoly",
		Name:               "Complete Monopoly",
		Description:        "Presence in every sector gives large bonuses to all activities.",
		RequiredCategories: []Category{CategoryEfficiency, CategoryDefensive, CategoryOffensive, CategoryUtility},
		MinBusinesses:      4,
		Effects: SynergyEffects{
			WorkMultiplierBonus: 40,
			AttackSuccessBonus:  25,
			DefenseBonus:        25,
			DailyWealthBonus:    5,
			CounterAttackBonus:  30,
			WealthTheftBonus:    20,
		},
		Priority: 5,
	},
}

func (e *Engine) categoryCounts(owned []string) map[Category]int {
	counts := make(map[Category]int)
	for _, id := range owned {
		if def, ok := e.catalog.Find(id); ok {
			counts[def.Category]++
		}
	}
	return counts
}

// ActiveSynergySets returns the sets satisfied by owned businesses, highest
// priority first.
func (e *Engine) ActiveSynergySets(owned []string) []SynergySet {
	counts := e.categoryCounts(owned)
	out := []SynergySet{}
	for _, set := range SynergySets {
		if set.satisfied(counts) {
			out = append(out, set)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// SynergySetEffects merges active sets. A stat from one set is dropped when
// a strictly higher priority active set also sets it.
func SynergySetEffects(active []SynergySet) SynergyEffects {
	var total SynergyEffects
	totals := total.stats()
	for _, set := range active {
		own := set.Effects
		mine := own.stats()
		for k, v := range mine {
			if *v <= 0 {
				continue
			}
			shadowed := false
			for _, other := range active {
				o := other.Effects
				if other.Priority > set.Priority && *o.stats()[k] > 0 {
					shadowed = true
					break
				}
			}
			if !shadowed {
				*totals[k] += *v
			}
		}
	}
	return total
}

type SynergyProgress struct {
	Set                 SynergySet `json:"set"`
	Owned               int        `json:"owned"`
	Required            int        `json:"required"`
	Percent             int        `json:"percent"`
	MissingRequirements []string   `json:"missing_requirements"`
}

func (p SynergyProgress) String() string {
	return fmt.Sprintf("%d%% (%d/%d)", p.Percent, p.Owned, p.Required)
}

// SynergySetProgress reports how close owned businesses are to each inactive
// set, closest first.
func (e *Engine) SynergySetProgress(owned []string) []SynergyProgress {
	counts := e.categoryCounts(owned)
	out := []SynergyProgress{}
	for _, set := range SynergySets {
		if set.satisfied(counts) {
			continue
		}
		need := set.requiredPerCategory()
		prog := SynergyProgress{Set: set, MissingRequirements: []string{}}
		var absent []string
		for _, cat := range set.RequiredCategories {
			have := counts[cat]
			prog.Required += need
			prog.Owned += min(have, need)
			if have < need {
				n := need - have
				suffix := ""
				if n > 1 {
					suffix = "es"
				}
				prog.MissingRequirements = append(prog.MissingRequirements, fmt.Sprintf("%d more %s business%s", n, cat, suffix))
			}
			if have == 0 {
				absent = append(absent, string(cat))
			}
		}
		if len(set.RequiredCategories) > 1 {
			prog.Required = len(set.RequiredCategories)
			prog.Owned = len(set.RequiredCategories) - len(absent)
			if len(absent) > 0 {
				prog.MissingRequirements = []string{"Need businesses from: " + strings.Join(absent, ", ")}
			}
		}
		if prog.Required > 0 {
			prog.Percent = prog.Owned * 100 / prog.Required
		}
		out = append(out, prog)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}
