package game

import (
	"fmt"
	"strings"
	"time"
)

type AbilityType string

const (
	AbilityPassive   AbilityType = "passive"
	AbilityActive    AbilityType = "active"
	AbilityTriggered AbilityType = "triggered"
)

type EffectMode string

const (
	ModePassive   EffectMode = "passive"
	ModeInstant   EffectMode = "instant"
	ModeSustained EffectMode = "sustained"
	ModeUpgrade   EffectMode = "upgrade"
)

// Effect is one of Passive, Instant, Sustained or Upgrade.
type Effect interface {
	Mode() EffectMode
}

// Passive effects hold while the business is owned. Duration is informational.
type Passive struct {
	Duration time.Duration
}

// Instant effects fire once per activation. Uses == 0 means unlimited.
type Instant struct {
	Cooldown time.Duration
	Uses     int
	Cost     int64
}

// Sustained effects last Duration; only one runs per player at a time.
type Sustained struct {
	Cooldown time.Duration
	Duration time.Duration
	Cost     int64
}

// Upgrade effects apply once and are never re-triggered.
type Upgrade struct {
	Cost int64
}

func (Passive) Mode() EffectMode   { return ModePassive }
func (Instant) Mode() EffectMode   { return ModeInstant }
func (Sustained) Mode() EffectMode { return ModeSustained }
func (Upgrade) Mode() EffectMode   { return ModeUpgrade }

type Ability struct {
	ID          string
	Name        string
	Description string
	Type        AbilityType
	Effect      Effect
}

func (a Ability) Mode() EffectMode {
	if a.Effect == nil {
		return ModePassive
	}
	return a.Effect.Mode()
}

// Cost is the activation price in wealth.
func (a Ability) Cost() int64 {
	switch e := a.Effect.(type) {
	case Instant:
		return e.Cost
	case Sustained:
		return e.Cost
	case Upgrade:
		return e.Cost
	default:
		return 0
	}
}

func (a Ability) Cooldown() time.Duration {
	switch e := a.Effect.(type) {
	case Instant:
		return e.Cooldown
	case Sustained:
		return e.Cooldown
	default:
		return 0
	}
}

type BusinessDefinition struct {
	ID             string
	Name           string
	Description    string
	Cost           int64
	Category       Category
	Tier           Tier
	Rarity         Rarity
	WorkMultiplier float64
	Prerequisites  []string
	Ability        Ability
}

// Catalog is the read-only business table. Safe for concurrent reads.
type Catalog struct {
	defs []BusinessDefinition
	byID map[string]int
}

func NewCatalog(defs []BusinessDefinition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]BusinessDefinition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			return nil, fmt.Errorf("catalog: business id is required")
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate business id %q", def.ID)
		}
		if def.Cost <= 0 {
			return nil, fmt.Errorf("catalog: %s: cost must be > 0", def.ID)
		}
		if err := validateAbility(def.Ability); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", def.ID, err)
		}
		c.byID[def.ID] = len(c.defs)
		c.defs = append(c.defs, def)
	}
	return c, nil
}

func validateAbility(a Ability) error {
	switch e := a.Effect.(type) {
	case nil, Passive:
		return nil
	case Instant:
		if e.Cooldown <= 0 {
			return fmt.Errorf("instant ability %q needs a cooldown", a.ID)
		}
		if e.Uses < 0 {
			return fmt.Errorf("instant ability %q has negative uses", a.ID)
		}
		if e.Cost < 0 {
			return fmt.Errorf("ability %q has negative cost", a.ID)
		}
	case Sustained:
		if e.Cooldown <= 0 || e.Duration <= 0 {
			return fmt.Errorf("sustained ability %q needs cooldown and duration", a.ID)
		}
		if e.Cost < 0 {
			return fmt.Errorf("ability %q has negative cost", a.ID)
		}
	case Upgrade:
		if e.Cost < 0 {
			return fmt.Errorf("ability %q has negative cost", a.ID)
		}
	default:
		return fmt.Errorf("ability %q has unknown effect %T", a.ID, e)
	}
	return nil
}

func (c *Catalog) Find(id string) (BusinessDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return BusinessDefinition{}, false
	}
	return c.defs[i], true
}

func (c *Catalog) Lookup(id string) (BusinessDefinition, error) {
	def, ok := c.Find(id)
	if !ok {
		return BusinessDefinition{}, fmt.Errorf("%w: %s", ErrBusinessNotFound, id)
	}
	return def, nil
}

func (c *Catalog) All() []BusinessDefinition {
	out := make([]BusinessDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// CountCategory counts how many of ids resolve to the given category.
// Unknown ids are skipped.
func (c *Catalog) CountCategory(ids []string, cat Category) int {
	n := 0
	for _, id := range ids {
		if def, ok := c.Find(id); ok && def.Category == cat {
			n++
		}
	}
	return n
}

const day = 24 * time.Hour

var enhancedBusinesses = []BusinessDefinition{
	{
		ID: "automation_factory", Name: "Automation Factory",
		Description: "Automates business processes, reducing work cooldowns while running.",
		Cost:        75, WorkMultiplier: 100, Category: CategoryEfficiency, Tier: TierPremium, Rarity: RarityRare,
		Ability: Ability{
			ID: "rapid_processing", Name: "Rapid Processing", Type: AbilityActive,
			Description: "Work cooldown drops to 1 hour for the next 6 hours",
			Effect:      Sustained{Cooldown: 7 * day, Duration: 6 * time.Hour, Cost: 15},
		},
	},
	{
		ID: "fast_food_chain", Name: "Fast Food Chain",
		Description: "Quick-service restaurants with steady income.",
		Cost:        35, WorkMultiplier: 75, Category: CategoryEfficiency, Tier: TierAdvanced, Rarity: RarityUncommon,
		Ability: Ability{
			ID: "quick_service", Name: "Quick Service", Type: AbilityActive,
			Description: "Next work action earns 40 credits instead of 25",
			Effect:      Instant{Cooldown: 5 * day, Uses: 4, Cost: 8},
		},
	},
	{
		ID: "innovation_lab", Name: "Innovation Lab",
		Description: "Research facility improving business efficiency.",
		Cost:        50, WorkMultiplier: 60, Category: CategoryEfficiency, Tier: TierAdvanced, Rarity: RarityUncommon,
		Ability: Ability{
			ID: "breakthrough", Name: "Breakthrough", Type: AbilityTriggered,
			Description: "Permanently increase work earnings from 25 to 30 credits per action",
			Effect:      Upgrade{Cost: 20},
		},
	},
	{
		ID: "security_firm", Name: "Security Firm",
		Description: "Professional security against hostile takeovers.",
		Cost:        40, WorkMultiplier: 50, Category: CategoryDefensive, Tier: TierAdvanced, Rarity: RarityUncommon,
		Ability: Ability{
			ID: "fortress_protection", Name: "Fortress Protection", Type: AbilityPassive,
			Description: "Immune to PvP attacks and cannot lose wealth to other players",
			Effect:      Passive{Duration: 30 * time.Minute},
		},
	},
	{
		ID: "insurance_company", Name: "Insurance Company",
		Description: "Reduces losses from failed defenses.",
		Cost:        15, WorkMultiplier: 40, Category: CategoryDefensive, Tier: TierBasic, Rarity: RarityCommon,
		Ability: Ability{
			ID: "damage_insurance", Name: "Damage Insurance", Type: AbilityPassive,
			Description: "When attacked, automatically counter-attack for 2x damage",
			Effect:      Passive{},
		},
	},
	{
		ID: "government_contract", Name: "Government Contract",
		Description: "Diplomatic immunity and steady income.",
		Cost:        200, WorkMultiplier: 80, Category: CategoryDefensive, Tier: TierLegendary, Rarity: RarityLegendary,
		Prerequisites: []string{"week_streak"},
		Ability: Ability{
			ID: "diplomatic_immunity", Name: "Diplomatic Immunity", Type: AbilityPassive,
			Description: "Generate 1 wealth per day automatically + immune to all PvP",
			Effect:      Passive{},
		},
	},
	{
		ID: "consulting_firm", Name: "Consulting Firm",
		Description: "Strategic advisors that disrupt competitor operations.",
		Cost:        45, WorkMultiplier: 45, Category: CategoryOffensive, Tier: TierAdvanced, Rarity: RarityUncommon,
		Ability: Ability{
			ID: "corporate_espionage", Name: "Corporate Espionage", Type: AbilityActive,
			Description: "Add 6 hours to target player's work cooldown",
			Effect:      Instant{Cooldown: 3 * day, Cost: 10},
		},
	},
	{
		ID: "cyber_security", Name: "Cyber Security",
		Description: "Elite hackers disrupting digital infrastructure.",
		Cost:        60, WorkMultiplier: 30, Category: CategoryOffensive, Tier: TierAdvanced, Rarity: RarityRare,
		Ability: Ability{
			ID: "system_disruption", Name: "System Disruption", Type: AbilityActive,
			Description: "Disable target's defensive businesses for 2 hours",
			Effect:      Sustained{Cooldown: 5 * day, Duration: 2 * time.Hour, Cost: 15},
		},
	},
	{
		ID: "market_research", Name: "Market Research",
		Description: "Intelligence gathering on competitor weaknesses.",
		Cost:        12, WorkMultiplier: 35, Category: CategoryOffensive, Tier: TierBasic, Rarity: RarityCommon,
		Ability: Ability{
			ID: "intelligence_gathering", Name: "Intelligence Gathering", Type: AbilityActive,
			Description: "Reveal target player's business portfolio and cooldowns",
			Effect:      Instant{Cooldown: 2 * day, Cost: 3},
		},
	},
	{
		ID: "marketing_agency", Name: "Marketing Agency",
		Description: "Amplifies business presence and conversion rates.",
		Cost:        30, WorkMultiplier: 30, Category: CategoryUtility, Tier: TierBasic, Rarity: RarityCommon,
		Ability: Ability{
			ID: "market_boost", Name: "Market Boost", Type: AbilityActive,
			Description: "25% better conversion rates for 12 hours",
			Effect:      Sustained{Cooldown: 4 * day, Duration: 12 * time.Hour, Cost: 8},
		},
	},
	{
		ID: "investment_bank", Name: "Investment Bank",
		Description: "Compound interest and wealth multiplication.",
		Cost:        100, WorkMultiplier: 80, Category: CategoryUtility, Tier: TierPremium, Rarity: RarityRare,
		Ability: Ability{
			ID: "compound_interest", Name: "Compound Interest", Type: AbilityActive,
			Description: "Generate 5% interest on wealth holdings daily for 7 days",
			Effect:      Sustained{Cooldown: 10 * day, Duration: 7 * day, Cost: 25},
		},
	},
	{
		ID: "venture_capital", Name: "Venture Capital",
		Description: "High-risk investment firm.",
		Cost:        20, WorkMultiplier: 35, Category: CategoryUtility, Tier: TierBasic, Rarity: RarityCommon,
		Ability: Ability{
			ID: "risky_investment", Name: "Risky Investment", Type: AbilityActive,
			Description: "60% chance to earn +50 bonus credits, 40% chance to lose 25 credits",
			Effect:      Instant{Cooldown: 6 * time.Hour, Cost: 5},
		},
	},
	{
		ID: "trading_exchange", Name: "Trading Exchange",
		Description: "Better conversion between credits and wealth.",
		Cost:        8, WorkMultiplier: 25, Category: CategoryUtility, Tier: TierBasic, Rarity: RarityCommon,
		Ability: Ability{
			ID: "arbitrage", Name: "Arbitrage", Type: AbilityPassive,
			Description: "15% better conversion rates between credits and wealth",
			Effect:      Passive{},
		},
	},
}

// DefaultCatalog returns the built-in business table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(enhancedBusinesses)
	if err != nil {
		panic(err)
	}
	return c
}
