package game

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	MaxCondition = 100.0

	// MaintenanceGrace halves degradation for this long after maintenance.
	MaintenanceGrace = 7 * 24 * time.Hour

	maxSynergyMaintenanceDiscount = 25
)

type MaintenanceKind string

const (
	MaintenanceRoutine   MaintenanceKind = "routine"
	MaintenanceMajor     MaintenanceKind = "major"
	MaintenanceUpgrade   MaintenanceKind = "upgrade"
	MaintenanceEmergency MaintenanceKind = "emergency"
)

type MaintenanceAction struct {
	Kind              MaintenanceKind `json:"kind"`
	Name              string          `json:"name"`
	CostMultiplier    float64         `json:"cost_multiplier"`
	ConditionRestored float64         `json:"condition_restored"`
	Downtime          time.Duration   `json:"downtime"`
	UpgradeBonus      float64         `json:"upgrade_bonus,omitempty"`
}

var maintenanceActions = map[MaintenanceKind]MaintenanceAction{
	MaintenanceRoutine: {
		Kind: MaintenanceRoutine, Name: "Routine Maintenance",
		CostMultiplier: 0.08, ConditionRestored: 25, Downtime: 2 * time.Hour,
	},
	MaintenanceMajor: {
		Kind: MaintenanceMajor, Name: "Major Overhaul",
		CostMultiplier: 0.20, ConditionRestored: 60, Downtime: 8 * time.Hour,
	},
	MaintenanceUpgrade: {
		Kind: MaintenanceUpgrade, Name: "Technology Upgrade",
		CostMultiplier: 0.35, ConditionRestored: 100, Downtime: 24 * time.Hour, UpgradeBonus: 0.10,
	},
	MaintenanceEmergency: {
		Kind: MaintenanceEmergency, Name: "Emergency Repair",
		CostMultiplier: 1.0, ConditionRestored: 30,
	},
}

var degradationBase = map[Category]float64{
	CategoryEfficiency: 2.5,
	CategoryOffensive:  3.5,
	CategoryDefensive:  1.5,
	CategoryUtility:    2.0,
}

var degradationTier = map[Tier]float64{
	TierBasic:     1.0,
	TierAdvanced:  1.2,
	TierPremium:   1.4,
	TierLegendary: 1.6,
}

func ParseMaintenanceKind(s string) (MaintenanceKind, error) {
	k := MaintenanceKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := maintenanceActions[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMaintenance, s)
	}
	return k, nil
}

type WarningLevel string

const (
	WarningGood     WarningLevel = "good"
	WarningCaution  WarningLevel = "caution"
	WarningCritical WarningLevel = "critical"
	WarningBroken   WarningLevel = "broken"
)

// DegradationRate is condition points lost per day.
func DegradationRate(def BusinessDefinition) float64 {
	tier, ok := degradationTier[def.Tier]
	if !ok {
		tier = 1
	}
	return degradationBase[def.Category] * tier
}

func EfficiencyMultiplier(condition float64) float64 {
	switch {
	case condition >= 80:
		return 1.0
	case condition >= 60:
		return 0.95
	case condition >= 40:
		return 0.85
	case condition >= 20:
		return 0.70
	case condition > 0:
		return 0.50
	default:
		return 0
	}
}

func WarningLevelFor(condition float64) WarningLevel {
	switch {
	case condition >= 60:
		return WarningGood
	case condition >= 40:
		return WarningCaution
	case condition > 0:
		return WarningCritical
	default:
		return WarningBroken
	}
}

// DegradeCondition advances st's condition to now. Time spent offline does
// not wear the business, and the first MaintenanceGrace after maintenance
// wears at half rate.
func DegradeCondition(st PlayerBusinessState, def BusinessDefinition, now time.Time) PlayerBusinessState {
	if st.ConditionCheckedAt.IsZero() {
		st.Condition = MaxCondition
		st.ConditionCheckedAt = now
		if st.LastMaintained.IsZero() {
			st.LastMaintained = st.PurchasedAt
		}
		return st
	}
	from := st.ConditionCheckedAt
	if !now.After(from) {
		return st
	}
	st.ConditionCheckedAt = now
	if !st.OfflineUntil.IsZero() {
		if st.Offline(now) {
			return st
		}
		if from.Before(st.OfflineUntil) {
			from = st.OfflineUntil
		}
		st.OfflineUntil = time.Time{}
	}

	half := overlap(from, now, st.LastMaintained, st.LastMaintained.Add(MaintenanceGrace))
	full := now.Sub(from) - half
	days := (full.Hours() + half.Hours()/2) / 24
	st.Condition = math.Max(0, st.Condition-DegradationRate(def)*days)
	return st
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// MaintenanceCost scales the action by business cost. Pricier businesses get
// a volume discount and every active synergy set takes 5% off, capped at 25%.
func (e *Engine) MaintenanceCost(def BusinessDefinition, kind MaintenanceKind, owned []string) int64 {
	action, ok := maintenanceActions[kind]
	if !ok {
		return 0
	}
	scaling := 1.0
	switch {
	case def.Cost > 100:
		scaling = 0.8
	case def.Cost > 50:
		scaling = 0.9
	}
	discount := 1.0
	if sets := len(e.ActiveSynergySets(owned)); sets > 0 {
		discount = 1 - float64(min(maxSynergyMaintenanceDiscount, sets*5))/100
	}
	cost := float64(def.Cost) * action.CostMultiplier * scaling * discount
	return int64(math.Floor(math.Max(1, cost)))
}

type MaintenanceRecord struct {
	BusinessID      string          `json:"business_id"`
	Kind            MaintenanceKind `json:"kind"`
	Cost            int64           `json:"cost"`
	ConditionBefore float64         `json:"condition_before"`
	ConditionAfter  float64         `json:"condition_after"`
	Downtime        time.Duration   `json:"downtime"`
	At              time.Time       `json:"at"`
}

// PerformMaintenance restores condition for a cost paid from balance. The
// business goes offline for the action's downtime.
func (e *Engine) PerformMaintenance(st PlayerBusinessState, def BusinessDefinition, kind MaintenanceKind, owned []string, balance int64, now time.Time) (PlayerBusinessState, MaintenanceRecord, error) {
	if !st.Owned {
		return st, MaintenanceRecord{}, ErrNotOwned
	}
	action, ok := maintenanceActions[kind]
	if !ok {
		return st, MaintenanceRecord{}, fmt.Errorf("%w: %q", ErrInvalidMaintenance, kind)
	}
	if st.Offline(now) {
		return st, MaintenanceRecord{}, fmt.Errorf("%w until %s", ErrBusinessOffline, st.OfflineUntil.UTC().Format(time.RFC3339))
	}
	cost := e.MaintenanceCost(def, kind, owned)
	if balance < cost {
		return st, MaintenanceRecord{}, fmt.Errorf("%w: %s costs %d credits, have %d", ErrInsufficientFunds, action.Name, cost, balance)
	}

	st = DegradeCondition(st, def, now)
	rec := MaintenanceRecord{
		BusinessID:      st.BusinessID,
		Kind:            kind,
		Cost:            cost,
		ConditionBefore: st.Condition,
		Downtime:        action.Downtime,
		At:              now,
	}
	st.Condition = math.Min(MaxCondition, st.Condition+action.ConditionRestored)
	st.LastMaintained = now
	st.ConditionCheckedAt = now
	st.OfflineUntil = time.Time{}
	if action.Downtime > 0 {
		st.OfflineUntil = now.Add(action.Downtime)
	}
	st.UpgradeBonus += action.UpgradeBonus
	rec.ConditionAfter = st.Condition
	return st, rec, nil
}

// CheckOperational rejects businesses that are mid-maintenance or broken.
func CheckOperational(st PlayerBusinessState, now time.Time) error {
	if st.Offline(now) {
		return fmt.Errorf("%w: %s back at %s", ErrBusinessOffline, st.BusinessID, st.OfflineUntil.UTC().Format(time.RFC3339))
	}
	if st.Condition <= 0 {
		return fmt.Errorf("%w: %s", ErrBusinessBroken, st.BusinessID)
	}
	return nil
}

type BusinessCondition struct {
	BusinessID      string       `json:"business_id"`
	Condition       float64      `json:"condition"`
	DegradationRate float64      `json:"degradation_rate"`
	Efficiency      float64      `json:"efficiency"`
	UpgradeBonus    float64      `json:"upgrade_bonus"`
	WarningLevel    WarningLevel `json:"warning_level"`
	Offline         bool         `json:"offline"`
	OfflineUntil    time.Time    `json:"offline_until"`
	RoutineCost     int64        `json:"routine_cost"`
}

// ConditionReport lists every owned business's condition as of now.
func (e *Engine) ConditionReport(p Player, now time.Time) []BusinessCondition {
	owned := p.OwnedBusinessIDs()
	out := make([]BusinessCondition, 0, len(owned))
	for _, b := range p.Businesses {
		def, ok := e.catalog.Find(b.BusinessID)
		if !b.Owned || !ok {
			continue
		}
		st := DegradeCondition(b, def, now)
		out = append(out, BusinessCondition{
			BusinessID:      st.BusinessID,
			Condition:       st.Condition,
			DegradationRate: DegradationRate(def),
			Efficiency:      EfficiencyMultiplier(st.Condition),
			UpgradeBonus:    st.UpgradeBonus,
			WarningLevel:    WarningLevelFor(st.Condition),
			Offline:         st.Offline(now),
			OfflineUntil:    st.OfflineUntil,
			RoutineCost:     e.MaintenanceCost(def, MaintenanceRoutine, owned),
		})
	}
	return out
}

// PortfolioEfficiency averages condition efficiency, including upgrade
// bonuses, across owned businesses. An empty portfolio runs at 1.
func PortfolioEfficiency(report []BusinessCondition) float64 {
	if len(report) == 0 {
		return 1
	}
	var sum float64
	for _, c := range report {
		sum += c.Efficiency * (1 + c.UpgradeBonus)
	}
	return sum / float64(len(report))
}

type MaintenanceRecommendation struct {
	BusinessID string          `json:"business_id"`
	Kind       MaintenanceKind `json:"kind"`
	Cost       int64           `json:"cost"`
	Priority   int             `json:"priority"`
}

// RecommendMaintenance suggests one action per business that budget can
// cover, most urgent first.
func (e *Engine) RecommendMaintenance(p Player, budget int64, now time.Time) []MaintenanceRecommendation {
	owned := p.OwnedBusinessIDs()
	var out []MaintenanceRecommendation
	for _, c := range e.ConditionReport(p, now) {
		var kind MaintenanceKind
		var priority int
		switch {
		case c.WarningLevel == WarningBroken:
			kind, priority = MaintenanceMajor, 100
		case c.WarningLevel == WarningCritical:
			kind, priority = MaintenanceEmergency, 80
		case c.WarningLevel == WarningCaution:
			kind, priority = MaintenanceRoutine, 60
		case c.Condition < 90 && c.UpgradeBonus < 0.2:
			kind, priority = MaintenanceUpgrade, 40
		default:
			continue
		}
		def, _ := e.catalog.Find(c.BusinessID)
		cost := e.MaintenanceCost(def, kind, owned)
		if cost > budget {
			continue
		}
		out = append(out, MaintenanceRecommendation{BusinessID: c.BusinessID, Kind: kind, Cost: cost, Priority: priority})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}
