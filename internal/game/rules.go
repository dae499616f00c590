package game

import "time"

type TakeoverConfig struct {
	MinimumTargetValue    int64
	IndividualBusinessMin int64
	PremiumAttackMin      int64
	NewPlayerProtection   time.Duration

	CreditMultiplier float64
	WealthMultiplier float64
	WealthRatio      int64 // credits per wealth for bid conversion
	MinimumBid       int64
	MinimumWealthBid int64

	BaseRate            int
	OffensiveBonus      int
	DefensivePenalty    int
	BidBonusStep        int64 // +1% per step above minimum
	DefenseStep         int64 // -1% per step spent on defense
	MinRate             int
	MaxRate             int
	CompensationPercent int64
}

type Rules struct {
	SlotEditCooldown time.Duration
	// ChargeRefillAfter refills exhausted instant charges once this long has
	// passed since the last activation. Zero disables refills.
	ChargeRefillAfter time.Duration
	Takeover          TakeoverConfig
}

func DefaultTakeoverConfig() TakeoverConfig {
	return TakeoverConfig{
		MinimumTargetValue:    500,
		IndividualBusinessMin: 50,
		PremiumAttackMin:      1000,
		NewPlayerProtection:   7 * 24 * time.Hour,

		CreditMultiplier: 1.5,
		WealthMultiplier: 2.0,
		WealthRatio:      10,
		MinimumBid:       50,
		MinimumWealthBid: 5,

		BaseRate:            60,
		OffensiveBonus:      5,
		DefensivePenalty:    10,
		BidBonusStep:        100,
		DefenseStep:         50,
		MinRate:             5,
		MaxRate:             95,
		CompensationPercent: 50,
	}
}

func DefaultRules() Rules {
	return Rules{
		SlotEditCooldown: DefaultSlotEditCooldown,
		Takeover:         DefaultTakeoverConfig(),
	}
}

// Engine evaluates game rules against a catalog. It holds no player state.
type Engine struct {
	catalog *Catalog
	rules   Rules
}

func NewEngine(catalog *Catalog, rules Rules) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog, rules: rules}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

func (e *Engine) Rules() Rules {
	return e.rules
}
