package game

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDef(t *testing.T, e *Engine, id string) BusinessDefinition {
	t.Helper()
	def, err := e.Catalog().Lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestInstantChargesExhaust(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "fast_food_chain")
	st := NewBusinessState(def, t0)
	if st.AbilityCharges != 4 {
		t.Fatalf("got charges %d want 4", st.AbilityCharges)
	}

	now := t0
	for i := 0; i < 4; i++ {
		act, err := e.Activate(st, def.Ability, now, SustainedEffect{}, 1000)
		if err != nil {
			t.Fatalf("activation %d: %v", i+1, err)
		}
		st = act.State
		now = now.Add(def.Ability.Cooldown())
	}
	if st.AbilityCharges != 0 {
		t.Fatalf("got charges %d want 0", st.AbilityCharges)
	}

	now = now.Add(30 * 24 * time.Hour)
	if e.CanActivate(st, def.Ability, now, SustainedEffect{}, 1000) {
		t.Fatalf("fifth activation allowed")
	}
	if err := e.CheckActivation(st, def.Ability, now, SustainedEffect{}, 1000); !errors.Is(err, ErrChargesExhausted) {
		t.Fatalf("expected ErrChargesExhausted, got %v", err)
	}
}

func TestInstantChargesRefillWhenConfigured(t *testing.T) {
	rules := DefaultRules()
	rules.ChargeRefillAfter = 10 * 24 * time.Hour
	e := NewEngine(nil, rules)
	def := mustDef(t, e, "fast_food_chain")
	st := NewBusinessState(def, t0)
	st.AbilityCharges = 0
	st.LastActivated = t0

	if err := e.CheckActivation(st, def.Ability, t0.Add(6*24*time.Hour), SustainedEffect{}, 100); !errors.Is(err, ErrChargesExhausted) {
		t.Fatalf("expected ErrChargesExhausted before refill window, got %v", err)
	}
	act, err := e.Activate(st, def.Ability, t0.Add(10*24*time.Hour), SustainedEffect{}, 100)
	if err != nil {
		t.Fatalf("activate after refill: %v", err)
	}
	if act.State.AbilityCharges != 3 {
		t.Fatalf("got charges %d want 3", act.State.AbilityCharges)
	}
}

func TestActivationCooldownLeavesStateUnchanged(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "consulting_firm")
	st := NewBusinessState(def, t0)

	act, err := e.Activate(st, def.Ability, t0, SustainedEffect{}, 100)
	if err != nil {
		t.Fatal(err)
	}
	st = act.State

	again, err := e.Activate(st, def.Ability, t0.Add(time.Hour), SustainedEffect{}, 100)
	if !errors.Is(err, ErrAbilityOnCooldown) {
		t.Fatalf("expected ErrAbilityOnCooldown, got %v", err)
	}
	if !again.State.LastActivated.Equal(t0) {
		t.Fatalf("lastActivated moved to %v", again.State.LastActivated)
	}
	if got := CooldownRemaining(st, def.Ability, t0.Add(time.Hour)); got != 71*time.Hour {
		t.Fatalf("got remaining %v want 71h", got)
	}
}

func TestSustainedExclusivity(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	factory := mustDef(t, e, "automation_factory")
	agency := mustDef(t, e, "marketing_agency")
	fst := NewBusinessState(factory, t0)
	ast := NewBusinessState(agency, t0)

	first, err := e.Activate(fst, factory.Ability, t0, SustainedEffect{}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Changed || !first.ExpiresAt.Equal(t0.Add(6*time.Hour)) {
		t.Fatalf("got %+v", first)
	}
	if !SustainedActive(first.Sustained, factory.ID, t0.Add(5*time.Hour)) {
		t.Fatalf("sustained should still run")
	}
	if SustainedActive(first.Sustained, factory.ID, t0.Add(6*time.Hour)) {
		t.Fatalf("sustained should have expired")
	}

	other, err := e.Activate(ast, agency.Ability, t0.Add(time.Hour), first.Sustained, 100)
	if !errors.Is(err, ErrSustainedRunning) {
		t.Fatalf("expected ErrSustainedRunning, got %v", err)
	}
	if !other.State.LastActivated.IsZero() {
		t.Fatalf("rejected activation changed lastActivated")
	}

	if _, err := e.Activate(ast, agency.Ability, t0.Add(6*time.Hour), first.Sustained, 100); err != nil {
		t.Fatalf("activation after expiry: %v", err)
	}
}

func TestSustainedSameBusinessIsNoop(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(nil, rules)
	def := BusinessDefinition{
		ID: "pulse", Cost: 10, Category: CategoryUtility,
		Ability: Ability{ID: "pulse", Effect: Sustained{Cooldown: time.Minute, Duration: time.Hour, Cost: 4}},
	}
	st := NewBusinessState(def, t0)
	first, err := e.Activate(st, def.Ability, t0, SustainedEffect{}, 10)
	if err != nil {
		t.Fatal(err)
	}

	second, err := e.Activate(first.State, def.Ability, t0.Add(10*time.Minute), first.Sustained, 10)
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if second.Changed || second.Cost != 0 {
		t.Fatalf("re-check should not change state: %+v", second)
	}
	if !second.State.LastActivated.Equal(t0) || second.Sustained != first.Sustained {
		t.Fatalf("state changed on re-check")
	}

	// Within the cooldown the re-check is still a no-op rather than an error.
	factory := mustDef(t, e, "automation_factory")
	fa, err := e.Activate(NewBusinessState(factory, t0), factory.Ability, t0, SustainedEffect{}, 100)
	if err != nil {
		t.Fatal(err)
	}
	re, err := e.Activate(fa.State, factory.Ability, t0.Add(time.Hour), fa.Sustained, 0)
	if err != nil || re.Changed {
		t.Fatalf("got %+v, %v", re, err)
	}
}

func TestUpgradeConsumedOnce(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "innovation_lab")
	st := NewBusinessState(def, t0)

	act, err := e.Activate(st, def.Ability, t0, SustainedEffect{}, 50)
	if err != nil {
		t.Fatal(err)
	}
	if !act.State.ConsumedUpgrade || act.Cost != 20 {
		t.Fatalf("got %+v", act)
	}
	if err := e.CheckActivation(act.State, def.Ability, t0.Add(365*24*time.Hour), SustainedEffect{}, 50); !errors.Is(err, ErrUpgradeConsumed) {
		t.Fatalf("expected ErrUpgradeConsumed, got %v", err)
	}
}

func TestActivationRejections(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	security := mustDef(t, e, "security_firm")
	bank := mustDef(t, e, "investment_bank")

	if err := e.CheckActivation(NewBusinessState(security, t0), security.Ability, t0, SustainedEffect{}, 100); !errors.Is(err, ErrPassiveAbility) {
		t.Fatalf("expected ErrPassiveAbility, got %v", err)
	}
	if err := e.CheckActivation(PlayerBusinessState{BusinessID: bank.ID}, bank.Ability, t0, SustainedEffect{}, 100); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
	if err := e.CheckActivation(NewBusinessState(bank, t0), bank.Ability, t0, SustainedEffect{}, 24); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPassiveActive(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	def := mustDef(t, e, "security_firm")
	st := NewBusinessState(def, t0)
	if !PassiveActive(st, def.Ability) {
		t.Fatalf("owned passive should be active")
	}
	st.Owned = false
	if PassiveActive(st, def.Ability) {
		t.Fatalf("unowned passive should be inactive")
	}
	bank := mustDef(t, e, "investment_bank")
	if PassiveActive(NewBusinessState(bank, t0), bank.Ability) {
		t.Fatalf("sustained ability is not passive")
	}
}
