package game

import (
	"errors"
	"math"
	"testing"
	"time"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMaintenanceCost(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	tests := []struct {
		id    string
		kind  MaintenanceKind
		owned []string
		want  int64
	}{
		{id: "automation_factory", kind: MaintenanceRoutine, want: 5},
		{id: "automation_factory", kind: MaintenanceMajor, want: 13},
		{id: "automation_factory", kind: MaintenanceUpgrade, want: 23},
		{id: "automation_factory", kind: MaintenanceEmergency, want: 67},
		{id: "government_contract", kind: MaintenanceRoutine, want: 12},
		{id: "trading_exchange", kind: MaintenanceRoutine, want: 1},
		{id: "automation_factory", kind: MaintenanceMajor, owned: []string{"automation_factory", "fast_food_chain"}, want: 12},
	}
	for _, tt := range tests {
		def := mustDef(t, e, tt.id)
		if got := e.MaintenanceCost(def, tt.kind, tt.owned); got != tt.want {
			t.Fatalf("%s/%s got %d want %d", tt.id, tt.kind, got, tt.want)
		}
	}
}

func TestParseMaintenanceKind(t *testing.T) {
	if k, err := ParseMaintenanceKind(" Upgrade "); err != nil || k != MaintenanceUpgrade {
		t.Fatalf("got %q %v", k, err)
	}
	if _, err := ParseMaintenanceKind("polish"); !errors.Is(err, ErrInvalidMaintenance) {
		t.Fatalf("expected ErrInvalidMaintenance, got %v", err)
	}
}

func TestEfficiencyAndWarningBands(t *testing.T) {
	tests := []struct {
		condition  float64
		efficiency float64
		warning    WarningLevel
	}{
		{100, 1.0, WarningGood},
		{80, 1.0, WarningGood},
		{79.9, 0.95, WarningGood},
		{60, 0.95, WarningGood},
		{59, 0.85, WarningCaution},
		{40, 0.85, WarningCaution},
		{39, 0.70, WarningCritical},
		{20, 0.70, WarningCritical},
		{1, 0.50, WarningCritical},
		{0, 0, WarningBroken},
	}
	for _, tt := range tests {
		if got := EfficiencyMultiplier(tt.condition); got != tt.efficiency {
			t.Fatalf("efficiency(%v) got %v want %v", tt.condition, got, tt.efficiency)
		}
		if got := WarningLevelFor(tt.condition); got != tt.warning {
			t.Fatalf("warning(%v) got %q want %q", tt.condition, got, tt.warning)
		}
	}
}

func TestDegradeCondition(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "automation_factory")
	if got := DegradationRate(def); !near(got, 3.5) {
		t.Fatalf("got rate %v want 3.5", got)
	}
	st := NewBusinessState(def, t0)

	once := DegradeCondition(st, def, t0.Add(10*day))
	if !near(once.Condition, 77.25) {
		t.Fatalf("got condition %v want 77.25", once.Condition)
	}
	stepped := DegradeCondition(DegradeCondition(st, def, t0.Add(5*day)), def, t0.Add(10*day))
	if !near(stepped.Condition, once.Condition) {
		t.Fatalf("stepped %v differs from single %v", stepped.Condition, once.Condition)
	}
	if back := DegradeCondition(once, def, t0); back.Condition != once.Condition {
		t.Fatalf("going back in time changed condition to %v", back.Condition)
	}

	broken := DegradeCondition(st, def, t0.Add(60*day))
	if broken.Condition != 0 || !errors.Is(CheckOperational(broken, t0.Add(60*day)), ErrBusinessBroken) {
		t.Fatalf("got %+v", broken)
	}

	legacy := DegradeCondition(PlayerBusinessState{BusinessID: def.ID, Owned: true, PurchasedAt: t0}, def, t0.Add(day))
	if legacy.Condition != MaxCondition || !legacy.ConditionCheckedAt.Equal(t0.Add(day)) {
		t.Fatalf("got %+v", legacy)
	}
}

func TestPerformMaintenance(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "automation_factory")
	owned := []string{def.ID}
	st := NewBusinessState(def, t0)
	m := t0.Add(10 * day)

	if _, _, err := e.PerformMaintenance(st, def, MaintenanceRoutine, owned, 4, m); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, _, err := e.PerformMaintenance(PlayerBusinessState{}, def, MaintenanceRoutine, owned, 100, m); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
	if _, _, err := e.PerformMaintenance(st, def, "polish", owned, 100, m); !errors.Is(err, ErrInvalidMaintenance) {
		t.Fatalf("expected ErrInvalidMaintenance, got %v", err)
	}

	next, rec, err := e.PerformMaintenance(st, def, MaintenanceUpgrade, owned, 100, m)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Cost != 23 || !near(rec.ConditionBefore, 77.25) || rec.ConditionAfter != MaxCondition {
		t.Fatalf("got record %+v", rec)
	}
	if !near(next.UpgradeBonus, 0.1) || !next.OfflineUntil.Equal(m.Add(24*time.Hour)) || !next.LastMaintained.Equal(m) {
		t.Fatalf("got state %+v", next)
	}
	if _, _, err := e.PerformMaintenance(next, def, MaintenanceRoutine, owned, 100, m.Add(time.Hour)); !errors.Is(err, ErrBusinessOffline) {
		t.Fatalf("expected ErrBusinessOffline, got %v", err)
	}
	if err := CheckOperational(next, m.Add(time.Hour)); !errors.Is(err, ErrBusinessOffline) {
		t.Fatalf("expected ErrBusinessOffline, got %v", err)
	}
}

func TestDowntimeDoesNotDegrade(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "automation_factory")
	m := t0.Add(10 * day)
	st, _, err := e.PerformMaintenance(NewBusinessState(def, t0), def, MaintenanceRoutine, nil, 100, m)
	if err != nil {
		t.Fatal(err)
	}

	during := DegradeCondition(st, def, m.Add(time.Hour))
	if during.Condition != MaxCondition {
		t.Fatalf("degraded while offline: %v", during.Condition)
	}
	after := DegradeCondition(during, def, m.Add(26*time.Hour))
	if !near(after.Condition, 98.25) || !after.OfflineUntil.IsZero() {
		t.Fatalf("got %+v", after)
	}
	if err := CheckOperational(after, m.Add(26*time.Hour)); err != nil {
		t.Fatalf("expected operational, got %v", err)
	}
}

func TestConditionReportAndRecommendations(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	at := func(id string, condition float64) PlayerBusinessState {
		return PlayerBusinessState{BusinessID: id, Owned: true, Condition: condition, ConditionCheckedAt: t0, LastMaintained: t0}
	}
	p := Player{ID: "p", Businesses: []PlayerBusinessState{
		at("market_research", 0),
		at("automation_factory", 50),
		at("security_firm", 30),
		at("insurance_company", 85),
	}}

	report := e.ConditionReport(p, t0)
	if len(report) != 4 || report[0].WarningLevel != WarningBroken || report[1].Efficiency != 0.85 {
		t.Fatalf("got %+v", report)
	}

	got := e.RecommendMaintenance(p, 30, t0)
	want := []MaintenanceRecommendation{
		{BusinessID: "market_research", Kind: MaintenanceMajor, Cost: 2, Priority: 100},
		{BusinessID: "automation_factory", Kind: MaintenanceRoutine, Cost: 5, Priority: 60},
		{BusinessID: "insurance_company", Kind: MaintenanceUpgrade, Cost: 4, Priority: 40},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestPortfolioEfficiency(t *testing.T) {
	if got := PortfolioEfficiency(nil); got != 1 {
		t.Fatalf("empty got %v want 1", got)
	}
	report := []BusinessCondition{
		{BusinessID: "a", Efficiency: 1, UpgradeBonus: 0.1},
		{BusinessID: "b", Efficiency: 0},
	}
	if got := PortfolioEfficiency(report); !near(got, 0.55) {
		t.Fatalf("got %v want 0.55", got)
	}
}
