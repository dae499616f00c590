package game

import "time"

type LegacyAssets struct {
	LemonadeStands int64 `json:"lemonade_stands"`
	Cafes          int64 `json:"cafes"`
	Factories      int64 `json:"factories"`
}

type PlayerBusinessState struct {
	BusinessID      string    `json:"business_id"`
	Owned           bool      `json:"owned"`
	Active          bool      `json:"active"`
	PurchasedAt     time.Time `json:"purchased_at"`
	LastActivated   time.Time `json:"last_activated"`
	AbilityCharges  int       `json:"ability_charges"`
	ConsumedUpgrade bool      `json:"consumed_upgrade"`

	// Condition is 0-100 as of ConditionCheckedAt.
	Condition          float64   `json:"condition"`
	ConditionCheckedAt time.Time `json:"condition_checked_at"`
	LastMaintained     time.Time `json:"last_maintained"`
	OfflineUntil       time.Time `json:"offline_until"`
	UpgradeBonus       float64   `json:"upgrade_bonus,omitempty"`
}

func (st PlayerBusinessState) Offline(now time.Time) bool {
	return now.Before(st.OfflineUntil)
}

// SustainedEffect is the single running sustained ability of a player.
type SustainedEffect struct {
	BusinessID string    `json:"business_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Until      time.Time `json:"until"`
}

func (s SustainedEffect) Running(now time.Time) bool {
	return s.BusinessID != "" && now.Before(s.Until)
}

type TimedEffect struct {
	Name  string    `json:"name"`
	Until time.Time `json:"until"`
}

type ActiveSlot struct {
	SlotID      int       `json:"slot_id"`
	BusinessID  string    `json:"business_id,omitempty"`
	ActivatedAt time.Time `json:"activated_at"`
}

type SynergyBonus struct {
	Category    Category `json:"category"`
	Count       int      `json:"count"`
	Bonus       int      `json:"bonus"`
	Description string   `json:"description"`
}

type BusinessSlotSystem struct {
	Slots                  []ActiveSlot   `json:"slots"`
	MaxSlots               int            `json:"max_slots"`
	LastSlotChange         time.Time      `json:"last_slot_change"`
	SlotCooldownUntil      time.Time      `json:"slot_cooldown_until"`
	SynergyBonuses         []SynergyBonus `json:"synergy_bonuses"`
	TotalSynergyMultiplier float64        `json:"total_synergy_multiplier"`
}

type Player struct {
	ID             string                 `json:"id"`
	Username       string                 `json:"username"`
	CreditBalance  int64                  `json:"credit_balance"`
	Wealth         int64                  `json:"wealth"`
	DefenseReserve int64                  `json:"defense_reserve"`
	AccountCreated time.Time              `json:"account_created"`
	WorkFrequency  WorkFrequency          `json:"work_frequency"`
	Legacy         LegacyAssets           `json:"legacy"`
	Businesses     []PlayerBusinessState  `json:"businesses"`
	Slots          BusinessSlotSystem     `json:"slots"`
	Sustained      SustainedEffect        `json:"sustained"`
	ActiveEffects  map[string]TimedEffect `json:"active_effects,omitempty"`
	TakeoverWins   int64                  `json:"takeover_wins"`
	TakeoverLosses int64                  `json:"takeover_losses"`

	MaintenanceSpent int64             `json:"maintenance_spent"`
	WAR              WARStats          `json:"war"`
	WARHistory       []WARHistoryEntry `json:"war_history,omitempty"`
}

// OwnedBusinessIDs returns ids of owned businesses in purchase order.
func (p Player) OwnedBusinessIDs() []string {
	out := make([]string, 0, len(p.Businesses))
	for _, b := range p.Businesses {
		if b.Owned {
			out = append(out, b.BusinessID)
		}
	}
	return out
}

func (p Player) Owns(businessID string) bool {
	for _, b := range p.Businesses {
		if b.Owned && b.BusinessID == businessID {
			return true
		}
	}
	return false
}

func (p *Player) businessState(businessID string) (*PlayerBusinessState, bool) {
	for i := range p.Businesses {
		if p.Businesses[i].BusinessID == businessID && p.Businesses[i].Owned {
			return &p.Businesses[i], true
		}
	}
	return nil, false
}

func (p Player) BusinessState(businessID string) (PlayerBusinessState, bool) {
	st, ok := p.businessState(businessID)
	if !ok {
		return PlayerBusinessState{}, false
	}
	return *st, true
}

func (p Player) Balance(c Currency) int64 {
	if c == CurrencyWealth {
		return p.Wealth
	}
	return p.CreditBalance
}

func (p *Player) adjustBalance(c Currency, delta int64) {
	if c == CurrencyWealth {
		p.Wealth += delta
		return
	}
	p.CreditBalance += delta
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	out := p
	out.Businesses = append([]PlayerBusinessState(nil), p.Businesses...)
	out.Slots.Slots = append([]ActiveSlot(nil), p.Slots.Slots...)
	out.Slots.SynergyBonuses = append([]SynergyBonus(nil), p.Slots.SynergyBonuses...)
	out.WARHistory = append([]WARHistoryEntry(nil), p.WARHistory...)
	if p.ActiveEffects != nil {
		out.ActiveEffects = make(map[string]TimedEffect, len(p.ActiveEffects))
		for k, v := range p.ActiveEffects {
			out.ActiveEffects[k] = v
		}
	}
	return out
}

type TakeoverTarget struct {
	Type              string `json:"type"`
	BusinessID        string `json:"business_id"`
	Value             int64  `json:"value"`
	Rarity            Rarity `json:"rarity"`
	DefenseDifficulty int    `json:"defense_difficulty"`
}

type TakeoverStatus string

const (
	StatusProposed        TakeoverStatus = "proposed"
	StatusValidated       TakeoverStatus = "validated"
	StatusResolvedSuccess TakeoverStatus = "resolved_success"
	StatusResolvedFailure TakeoverStatus = "resolved_failure"
)

type TakeoverBid struct {
	ID          string         `json:"id"`
	AttackerID  string         `json:"attacker_id"`
	DefenderID  string         `json:"defender_id"`
	Target      TakeoverTarget `json:"target"`
	BidAmount   int64          `json:"bid_amount"`
	BidCurrency Currency       `json:"bid_currency"`
	Status      TakeoverStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

type DefenseResponse struct {
	DefenderID    string `json:"defender_id"`
	DefenseAmount int64  `json:"defense_amount"`
}

type TakeoverEligibility struct {
	CanBeTargeted       bool            `json:"can_be_targeted"`
	Reason              string          `json:"reason,omitempty"`
	PortfolioValue      int64           `json:"portfolio_value"`
	ProtectionLevel     ProtectionLevel `json:"protection_level"`
	ProtectedBusinesses []string        `json:"protected_businesses"`
	MinimumAttackCost   int64           `json:"minimum_attack_cost"`
}

type TakeoverResult struct {
	ID                  string         `json:"id"`
	BidID               string         `json:"bid_id"`
	Success             bool           `json:"success"`
	AttackerID          string         `json:"attacker_id"`
	DefenderID          string         `json:"defender_id"`
	Target              TakeoverTarget `json:"target"`
	FinalBid            int64          `json:"final_bid"`
	Currency            Currency       `json:"currency"`
	DefenseAttempted    bool           `json:"defense_attempted"`
	DefenseAmount       int64          `json:"defense_amount"`
	SuccessRate         int            `json:"success_rate"`
	Roll                float64        `json:"roll"`
	Compensation        int64          `json:"compensation"`
	BusinessTransferred string         `json:"business_transferred,omitempty"`
	ResolvedAt          time.Time      `json:"resolved_at"`
}

type LeaderboardRow struct {
	Rank           int64  `json:"rank"`
	PlayerID       string `json:"player_id"`
	Username       string `json:"username"`
	Score          int64  `json:"score"`
	PortfolioValue int64  `json:"portfolio_value"`
	Businesses     int    `json:"businesses"`

	WAR       float64   `json:"war"`
	WARRating WARRating `json:"war_rating,omitempty"`
}
