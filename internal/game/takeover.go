package game

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roller supplies the single uniform draw in [0,1) used to resolve a
// takeover. *math/rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

// FixedRoller always returns the same draw.
type FixedRoller float64

func (f FixedRoller) Float64() float64 { return float64(f) }

var takeoverTransitions = map[TakeoverStatus][]TakeoverStatus{
	StatusProposed:  {StatusValidated},
	StatusValidated: {StatusResolvedSuccess, StatusResolvedFailure},
}

func CanTransition(from, to TakeoverStatus) bool {
	for _, next := range takeoverTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves the bid to status to, or fails without changing it.
func (b *TakeoverBid) Advance(to TakeoverStatus) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

func (s TakeoverStatus) Terminal() bool {
	return s == StatusResolvedSuccess || s == StatusResolvedFailure
}

func defenseDifficulty(t Tier) int {
	switch t {
	case TierLegendary:
		return 90
	case TierPremium:
		return 70
	case TierAdvanced:
		return 50
	default:
		return 30
	}
}

func CreateBusinessTarget(def BusinessDefinition) TakeoverTarget {
	return TakeoverTarget{
		Type:              "business",
		BusinessID:        def.ID,
		Value:             def.Cost,
		Rarity:            def.Rarity,
		DefenseDifficulty: defenseDifficulty(def.Tier),
	}
}

// NewBid proposes an attack. It is not validated yet.
func NewBid(attackerID, defenderID string, def BusinessDefinition, amount int64, currency Currency, now time.Time) TakeoverBid {
	return TakeoverBid{
		ID:          uuid.NewString(),
		AttackerID:  attackerID,
		DefenderID:  defenderID,
		Target:      CreateBusinessTarget(def),
		BidAmount:   amount,
		BidCurrency: currency,
		Status:      StatusProposed,
		CreatedAt:   now,
	}
}

func (e *Engine) CalculateTakeoverEligibility(p Player, now time.Time) TakeoverEligibility {
	cfg := e.rules.Takeover
	value := e.PortfolioValue(p)
	owned := p.OwnedBusinessIDs()

	if now.Sub(p.AccountCreated) < cfg.NewPlayerProtection {
		return TakeoverEligibility{
			Reason:              fmt.Sprintf("New player protection (%d days)", int64(cfg.NewPlayerProtection/(24*time.Hour))),
			PortfolioValue:      value,
			ProtectionLevel:     ProtectionAbsolute,
			ProtectedBusinesses: owned,
		}
	}
	if value < cfg.MinimumTargetValue {
		return TakeoverEligibility{
			Reason:              fmt.Sprintf("Portfolio value too low (%d < %d)", value, cfg.MinimumTargetValue),
			PortfolioValue:      value,
			ProtectionLevel:     ProtectionAbsolute,
			ProtectedBusinesses: owned,
		}
	}

	out := TakeoverEligibility{
		CanBeTargeted:       true,
		PortfolioValue:      value,
		ProtectionLevel:     ProtectionNone,
		ProtectedBusinesses: []string{},
		MinimumAttackCost:   cfg.MinimumBid,
	}
	if value < cfg.PremiumAttackMin {
		out.ProtectionLevel = ProtectionLimited
		for _, id := range owned {
			if def, ok := e.catalog.Find(id); ok && def.Cost < cfg.IndividualBusinessMin {
				out.ProtectedBusinesses = append(out.ProtectedBusinesses, id)
			}
		}
	}
	return out
}

// CalculateTakeoverCost is the minimum bid for def in currency.
func (e *Engine) CalculateTakeoverCost(def BusinessDefinition, currency Currency) int64 {
	cfg := e.rules.Takeover
	if currency == CurrencyWealth {
		ratio := cfg.WealthRatio
		if ratio <= 0 {
			ratio = 1
		}
		equiv := (def.Cost + ratio - 1) / ratio
		return max(int64(math.Floor(float64(equiv)*cfg.WealthMultiplier)), cfg.MinimumWealthBid)
	}
	return max(int64(math.Floor(float64(def.Cost)*cfg.CreditMultiplier)), cfg.MinimumBid)
}

// CanTargetBusiness runs the targeting checks in order and stops at the first
// failure. On success it returns the credit cost of the attack.
func (e *Engine) CanTargetBusiness(attacker, defender Player, businessID string, now time.Time) (int64, error) {
	if attacker.ID != "" && attacker.ID == defender.ID {
		return 0, ErrSelfTarget
	}
	elig := e.CalculateTakeoverEligibility(defender, now)
	if !elig.CanBeTargeted {
		return 0, fmt.Errorf("%w: %s", ErrTargetIneligible, elig.Reason)
	}
	for _, id := range elig.ProtectedBusinesses {
		if id == businessID {
			return 0, ErrTargetProtected
		}
	}
	def, err := e.catalog.Lookup(businessID)
	if err != nil {
		return 0, err
	}
	if !defender.Owns(businessID) {
		return 0, ErrTargetNotOwner
	}
	cost := e.CalculateTakeoverCost(def, CurrencyCredits)
	if attacker.CreditBalance < cost {
		return 0, fmt.Errorf("%w: insufficient credits for attack", ErrInsufficientFunds)
	}
	return cost, nil
}

// ValidateTakeoverBid checks a concrete bid on top of CanTargetBusiness.
func (e *Engine) ValidateTakeoverBid(attacker, defender Player, businessID string, amount int64, currency Currency, now time.Time) error {
	if currency != CurrencyCredits && currency != CurrencyWealth {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	if _, err := e.CanTargetBusiness(attacker, defender, businessID, now); err != nil {
		return err
	}
	def, err := e.catalog.Lookup(businessID)
	if err != nil {
		return err
	}
	if attacker.Owns(businessID) {
		return fmt.Errorf("%w: attacker already owns %s", ErrAlreadyOwned, businessID)
	}
	if minimum := e.CalculateTakeoverCost(def, currency); amount < minimum {
		return fmt.Errorf("%w: minimum %d %s", ErrBidTooLow, minimum, currency)
	}
	if attacker.Balance(currency) < amount {
		return fmt.Errorf("%w: insufficient %s", ErrInsufficientFunds, currency)
	}
	return nil
}

// CalculateSuccessRate returns the attack's chance in percent, clamped to the
// configured range.
func (e *Engine) CalculateSuccessRate(attacker, defender Player, bid TakeoverBid, defenseAmount int64) int {
	cfg := e.rules.Takeover
	rate := cfg.BaseRate
	rate += cfg.OffensiveBonus * e.countCategory(attacker, CategoryOffensive)

	if def, ok := e.catalog.Find(bid.Target.BusinessID); ok && cfg.BidBonusStep > 0 {
		excess := bid.BidAmount - e.CalculateTakeoverCost(def, bid.BidCurrency)
		rate += int(floorDiv(excess, cfg.BidBonusStep))
	}

	rate -= cfg.DefensivePenalty * e.countCategory(defender, CategoryDefensive)
	if cfg.DefenseStep > 0 && defenseAmount > 0 {
		rate -= int(defenseAmount / cfg.DefenseStep)
	}
	return min(max(rate, cfg.MinRate), cfg.MaxRate)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ExecuteTakeover resolves a validated bid with one draw from r and moves the
// bid to its terminal status. It does not mutate either player.
func (e *Engine) ExecuteTakeover(attacker, defender Player, bid *TakeoverBid, defense *DefenseResponse, r Roller, now time.Time) (TakeoverResult, error) {
	if bid.Status != StatusValidated {
		return TakeoverResult{}, fmt.Errorf("%w: bid is %s", ErrInvalidTransition, bid.Status)
	}
	var defenseAmount int64
	if defense != nil {
		defenseAmount = defense.DefenseAmount
	}
	rate := e.CalculateSuccessRate(attacker, defender, *bid, defenseAmount)
	roll := r.Float64() * 100
	success := roll < float64(rate)

	res := TakeoverResult{
		ID:               uuid.NewString(),
		BidID:            bid.ID,
		Success:          success,
		AttackerID:       attacker.ID,
		DefenderID:       defender.ID,
		Target:           bid.Target,
		FinalBid:         bid.BidAmount,
		Currency:         bid.BidCurrency,
		DefenseAttempted: defense != nil,
		DefenseAmount:    defenseAmount,
		SuccessRate:      rate,
		Roll:             roll,
		ResolvedAt:       now,
	}
	next := StatusResolvedFailure
	if success {
		next = StatusResolvedSuccess
		if def, ok := e.catalog.Find(bid.Target.BusinessID); ok {
			res.Compensation = def.Cost * e.rules.Takeover.CompensationPercent / 100
			res.BusinessTransferred = def.ID
		}
	}
	if err := bid.Advance(next); err != nil {
		return TakeoverResult{}, err
	}
	return res, nil
}

// ApplyTakeover performs both sides of a resolved takeover. Callers must
// persist attacker and defender together.
func (e *Engine) ApplyTakeover(attacker, defender *Player, res TakeoverResult, now time.Time) {
	attacker.adjustBalance(res.Currency, -res.FinalBid)
	defender.DefenseReserve = 0

	if !res.Success {
		attacker.TakeoverLosses++
		defender.TakeoverWins++
		return
	}
	attacker.TakeoverWins++
	defender.TakeoverLosses++
	defender.adjustBalance(res.Currency, res.Compensation)

	id := res.BusinessTransferred
	if id == "" {
		return
	}
	kept := make([]PlayerBusinessState, 0, len(defender.Businesses))
	for _, b := range defender.Businesses {
		if b.BusinessID != id {
			kept = append(kept, b)
		}
	}
	defender.Businesses = kept
	clearBusinessSlots(&defender.Slots, id)
	if defender.Sustained.BusinessID == id {
		defender.Sustained = SustainedEffect{}
	}
	if def, ok := e.catalog.Find(id); ok {
		delete(defender.ActiveEffects, def.Ability.ID)
	}
	e.RefreshSlotSystem(defender)

	if def, ok := e.catalog.Find(id); ok && !attacker.Owns(id) {
		attacker.Businesses = append(attacker.Businesses, NewBusinessState(def, now))
		e.RefreshSlotSystem(attacker)
	}
}

// HasActiveProtection reports whether p is shielded against protectionType,
// either by an unexpired timed effect of that name or by owning a passive
// defensive business whose ability name contains it (case-insensitive).
func (e *Engine) HasActiveProtection(p Player, protectionType string, now time.Time) bool {
	if eff, ok := p.ActiveEffects[protectionType]; ok && now.Before(eff.Until) {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(protectionType))
	if needle == "" {
		return false
	}
	for _, id := range p.OwnedBusinessIDs() {
		def, ok := e.catalog.Find(id)
		if !ok || def.Category != CategoryDefensive || def.Ability.Type != AbilityPassive {
			continue
		}
		if strings.Contains(strings.ToLower(def.Ability.Name), needle) {
			return true
		}
	}
	return false
}
