package game

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StarterWealth  = int64(150)
	StarterCredits = int64(100)

	// Legacy asset notional values, per unit.
	LemonadeStandValue = int64(10)
	CafeValue          = int64(50)
	FactoryValue       = int64(200)

	DefaultSlotEditCooldown = 4 * time.Hour
)

var (
	ErrBusinessNotFound   = errors.New("business not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerExists       = errors.New("player already exists")
	ErrNotOwned           = errors.New("you don't own this business")
	ErrAlreadyOwned       = errors.New("business already owned")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAbilityOnCooldown  = errors.New("ability on cooldown")
	ErrChargesExhausted   = errors.New("ability charges exhausted")
	ErrUpgradeConsumed    = errors.New("upgrade already consumed")
	ErrSustainedRunning   = errors.New("another sustained ability is active")
	ErrPassiveAbility     = errors.New("passive abilities cannot be activated")
	ErrSlotCooldown       = errors.New("slot cooldown active")
	ErrInvalidSlot        = errors.New("invalid slot id")
	ErrSlotLocked         = errors.New("slot locked for current work frequency")
	ErrInvalidTier        = errors.New("unknown work frequency tier")
	ErrInvalidCurrency    = errors.New("currency must be credits or wealth")
	ErrInvalidAmount      = errors.New("amount must be > 0")
	ErrTargetIneligible   = errors.New("target cannot be attacked")
	ErrTargetProtected    = errors.New("business is protected")
	ErrTargetNotOwner     = errors.New("target does not own this business")
	ErrSelfTarget         = errors.New("cannot target yourself")
	ErrBidTooLow          = errors.New("bid too low")
	ErrInvalidTransition  = errors.New("invalid takeover status transition")
	ErrDuplicateBid       = errors.New("duplicate takeover idempotency key")
	ErrTxConflict         = errors.New("transaction conflict, retry")
	ErrInvalidPlayerInput = errors.New("invalid player input")
	ErrPrerequisite       = errors.New("missing prerequisite business")
	ErrIdempotencyKey     = errors.New("idempotency key is required")
	ErrInvalidMaintenance = errors.New("maintenance action must be routine, major, upgrade or emergency")
	ErrBusinessOffline    = errors.New("business offline for maintenance")
	ErrBusinessBroken     = errors.New("business broken, repair required")
)

type Category string

const (
	CategoryEfficiency Category = "efficiency"
	CategoryDefensive  Category = "defensive"
	CategoryOffensive  Category = "offensive"
	CategoryUtility    Category = "utility"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryEfficiency, CategoryDefensive, CategoryOffensive, CategoryUtility}

type Tier string

const (
	TierBasic     Tier = "basic"
	TierAdvanced  Tier = "advanced"
	TierPremium   Tier = "premium"
	TierLegendary Tier = "legendary"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

type WorkFrequency string

const (
	WorkNovice     WorkFrequency = "novice"
	WorkApprentice WorkFrequency = "apprentice"
	WorkSkilled    WorkFrequency = "skilled"
	WorkExpert     WorkFrequency = "expert"
	WorkMaster     WorkFrequency = "master"
)

var slotLimits = map[WorkFrequency]int{
	WorkNovice:     1,
	WorkApprentice: 2,
	WorkSkilled:    3,
	WorkExpert:     4,
	WorkMaster:     5,
}

func ParseWorkFrequency(s string) (WorkFrequency, error) {
	wf := WorkFrequency(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := slotLimits[wf]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return wf, nil
}

type Currency string

const (
	CurrencyCredits Currency = "credits"
	CurrencyWealth  Currency = "wealth"
)

func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToLower(strings.TrimSpace(s))); c {
	case CurrencyCredits, CurrencyWealth:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
}

type ProtectionLevel string

const (
	ProtectionAbsolute ProtectionLevel = "absolute"
	ProtectionLimited  ProtectionLevel = "limited"
	ProtectionNone     ProtectionLevel = "none"
)

// ceilMinutes rounds a remaining duration up to whole minutes.
func ceilMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}
