package game

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

var veteran = t0.Add(-30 * 24 * time.Hour)

func newPlayer(id string, created time.Time, ids ...string) Player {
	p := ownedPlayer(WorkMaster, ids...)
	p.ID = id
	p.AccountCreated = created
	return p
}

func TestCalculateTakeoverCost(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	tests := []struct {
		id       string
		currency Currency
		want     int64
	}{
		{id: "automation_factory", currency: CurrencyCredits, want: 112},
		{id: "trading_exchange", currency: CurrencyWealth, want: 5},
		{id: "trading_exchange", currency: CurrencyCredits, want: 50},
		{id: "government_contract", currency: CurrencyCredits, want: 300},
		{id: "government_contract", currency: CurrencyWealth, want: 40},
		{id: "automation_factory", currency: CurrencyWealth, want: 16},
	}
	for _, tc := range tests {
		if got := e.CalculateTakeoverCost(mustDef(t, e, tc.id), tc.currency); got != tc.want {
			t.Fatalf("%s/%s got %d want %d", tc.id, tc.currency, got, tc.want)
		}
	}
}

func TestEligibilityNewPlayerIsAbsolute(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	p := newPlayer("d", t0.Add(-3*24*time.Hour), "government_contract", "investment_bank")
	p.Legacy.Factories = 10

	got := e.CalculateTakeoverEligibility(p, t0)
	if got.CanBeTargeted || got.ProtectionLevel != ProtectionAbsolute {
		t.Fatalf("got %+v", got)
	}
	if got.Reason != "New player protection (7 days)" || got.MinimumAttackCost != 0 {
		t.Fatalf("got %+v", got)
	}
	if !reflect.DeepEqual(got.ProtectedBusinesses, []string{"government_contract", "investment_bank"}) {
		t.Fatalf("got protected %v", got.ProtectedBusinesses)
	}
}

func TestEligibilityLevels(t *testing.T) {
	e := NewEngine(nil, DefaultRules())

	low := newPlayer("low", veteran, "consulting_firm")
	got := e.CalculateTakeoverEligibility(low, t0)
	if got.CanBeTargeted || got.Reason != "Portfolio value too low (45 < 500)" {
		t.Fatalf("low got %+v", got)
	}

	limited := newPlayer("mid", veteran, "government_contract", "investment_bank", "automation_factory", "security_firm", "trading_exchange", "venture_capital")
	limited.Legacy = LegacyAssets{LemonadeStands: 3, Cafes: 1}
	got = e.CalculateTakeoverEligibility(limited, t0)
	if !got.CanBeTargeted || got.ProtectionLevel != ProtectionLimited || got.PortfolioValue != 523 {
		t.Fatalf("limited got %+v", got)
	}
	if want := []string{"security_firm", "trading_exchange", "venture_capital"}; !reflect.DeepEqual(got.ProtectedBusinesses, want) {
		t.Fatalf("got protected %v want %v", got.ProtectedBusinesses, want)
	}
	if got.MinimumAttackCost != 50 {
		t.Fatalf("got minimum %d", got.MinimumAttackCost)
	}

	rich := newPlayer("rich", veteran, "trading_exchange")
	rich.Legacy.Factories = 5
	got = e.CalculateTakeoverEligibility(rich, t0)
	if got.ProtectionLevel != ProtectionNone || len(got.ProtectedBusinesses) != 0 {
		t.Fatalf("rich got %+v", got)
	}
}

func TestCanTargetBusinessChain(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	defender := newPlayer("d", veteran, "government_contract", "investment_bank", "automation_factory", "security_firm", "market_research")
	defender.Legacy.Cafes = 2
	attacker := newPlayer("a", veteran)
	attacker.CreditBalance = 500

	cost, err := e.CanTargetBusiness(attacker, defender, "automation_factory", t0)
	if err != nil || cost != 112 {
		t.Fatalf("got cost=%d err=%v", cost, err)
	}

	tests := []struct {
		name string
		att  Player
		def  Player
		id   string
		want error
	}{
		{name: "self", att: defender, def: defender, id: "automation_factory", want: ErrSelfTarget},
		{name: "new player", att: attacker, def: newPlayer("n", t0, "government_contract"), id: "government_contract", want: ErrTargetIneligible},
		{name: "protected", att: attacker, def: defender, id: "market_research", want: ErrTargetProtected},
		{name: "unknown", att: attacker, def: defender, id: "space_elevator", want: ErrBusinessNotFound},
		{name: "not owner", att: attacker, def: defender, id: "cyber_security", want: ErrTargetNotOwner},
		{name: "broke", att: newPlayer("b", veteran), def: defender, id: "automation_factory", want: ErrInsufficientFunds},
	}
	for _, tc := range tests {
		if _, err := e.CanTargetBusiness(tc.att, tc.def, tc.id, t0); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestValidateTakeoverBid(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	defender := newPlayer("d", veteran, "government_contract", "investment_bank", "automation_factory", "security_firm")
	defender.Legacy.Cafes = 2
	attacker := newPlayer("a", veteran)
	attacker.CreditBalance = 500
	attacker.Wealth = 10

	if err := e.ValidateTakeoverBid(attacker, defender, "automation_factory", 112, CurrencyCredits, t0); err != nil {
		t.Fatalf("minimum bid rejected: %v", err)
	}
	err := e.ValidateTakeoverBid(attacker, defender, "automation_factory", 111, CurrencyCredits, t0)
	if !errors.Is(err, ErrBidTooLow) || err.Error() != "bid too low: minimum 112 credits" {
		t.Fatalf("got %v", err)
	}
	if err := e.ValidateTakeoverBid(attacker, defender, "automation_factory", 16, CurrencyWealth, t0); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := e.ValidateTakeoverBid(attacker, defender, "automation_factory", 112, "gold", t0); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	owner := newPlayer("a2", veteran, "automation_factory")
	owner.CreditBalance = 500
	if err := e.ValidateTakeoverBid(owner, defender, "automation_factory", 112, CurrencyCredits, t0); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
}

func TestSuccessRateScenario(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	attacker := newPlayer("a", veteran, "consulting_firm", "cyber_security", "market_research")
	defender := newPlayer("d", veteran, "security_firm", "insurance_company", "automation_factory")
	def := mustDef(t, e, "automation_factory")

	bid := NewBid("a", "d", def, 112, CurrencyCredits, t0)
	if got := e.CalculateSuccessRate(attacker, defender, bid, 0); got != 55 {
		t.Fatalf("got %d want 55", got)
	}
	bid.BidAmount = 313
	if got := e.CalculateSuccessRate(attacker, defender, bid, 0); got != 57 {
		t.Fatalf("got %d want 57", got)
	}
	if got := e.CalculateSuccessRate(attacker, defender, bid, 149); got != 55 {
		t.Fatalf("got %d want 55", got)
	}
}

func TestSuccessRateClamped(t *testing.T) {
	defs := []BusinessDefinition{{ID: "target", Cost: 100, Category: CategoryUtility}}
	var offensive, defensive []string
	for i := 0; i < 20; i++ {
		o := fmt.Sprintf("raid_%d", i)
		d := fmt.Sprintf("wall_%d", i)
		defs = append(defs,
			BusinessDefinition{ID: o, Cost: 10, Category: CategoryOffensive},
			BusinessDefinition{ID: d, Cost: 10, Category: CategoryDefensive},
		)
		offensive = append(offensive, o)
		defensive = append(defensive, d)
	}
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(c, DefaultRules())
	target, _ := c.Find("target")

	strong := newPlayer("a", veteran, offensive...)
	open := newPlayer("d", veteran, "target")
	bid := NewBid("a", "d", target, 1_000_000, CurrencyCredits, t0)
	if got := e.CalculateSuccessRate(strong, open, bid, 0); got != 95 {
		t.Fatalf("got %d want 95", got)
	}

	weak := newPlayer("a", veteran)
	fortress := newPlayer("d", veteran, append(defensive, "target")...)
	bid = NewBid("a", "d", target, 150, CurrencyCredits, t0)
	if got := e.CalculateSuccessRate(weak, fortress, bid, 1_000_000); got != 5 {
		t.Fatalf("got %d want 5", got)
	}
}

func TestBidTransitions(t *testing.T) {
	bid := TakeoverBid{Status: StatusProposed}
	if err := bid.Advance(StatusResolvedSuccess); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := bid.Advance(StatusValidated); err != nil {
		t.Fatal(err)
	}
	if err := bid.Advance(StatusResolvedFailure); err != nil {
		t.Fatal(err)
	}
	if !bid.Status.Terminal() {
		t.Fatalf("resolved bid should be terminal")
	}
	if err := bid.Advance(StatusValidated); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal bid moved: %v", err)
	}
}

func TestExecuteTakeover(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	attacker := newPlayer("a", veteran, "consulting_firm", "cyber_security", "market_research")
	defender := newPlayer("d", veteran, "security_firm", "insurance_company", "automation_factory")
	def := mustDef(t, e, "automation_factory")

	tests := []struct {
		roll    float64
		success bool
	}{
		{roll: 0.54, success: true},
		{roll: 0.55, success: false},
		{roll: 0.99, success: false},
	}
	for _, tc := range tests {
		bid := NewBid("a", "d", def, 112, CurrencyCredits, t0)
		if err := bid.Advance(StatusValidated); err != nil {
			t.Fatal(err)
		}
		res, err := e.ExecuteTakeover(attacker, defender, &bid, nil, FixedRoller(tc.roll), t0)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success != tc.success || res.SuccessRate != 55 {
			t.Fatalf("roll=%v got %+v", tc.roll, res)
		}
		if tc.success {
			if res.Compensation != 37 || res.BusinessTransferred != def.ID || bid.Status != StatusResolvedSuccess {
				t.Fatalf("roll=%v got %+v status %s", tc.roll, res, bid.Status)
			}
		} else if res.Compensation != 0 || bid.Status != StatusResolvedFailure {
			t.Fatalf("roll=%v got %+v status %s", tc.roll, res, bid.Status)
		}
	}

	proposed := NewBid("a", "d", def, 112, CurrencyCredits, t0)
	if _, err := e.ExecuteTakeover(attacker, defender, &proposed, nil, FixedRoller(0), t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApplyTakeover(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	attacker := newPlayer("a", veteran)
	attacker.CreditBalance = 200
	defender := newPlayer("d", veteran, "automation_factory", "fast_food_chain")
	defender.Slots.Slots[0] = ActiveSlot{SlotID: 0, BusinessID: "automation_factory"}
	defender.Slots.Slots[1] = ActiveSlot{SlotID: 1, BusinessID: "fast_food_chain"}
	defender.DefenseReserve = 100
	e.RefreshSlotSystem(&defender)

	res := TakeoverResult{Success: true, FinalBid: 113, Currency: CurrencyCredits, Compensation: 37, BusinessTransferred: "automation_factory"}
	e.ApplyTakeover(&attacker, &defender, res, t0)

	if attacker.CreditBalance != 87 || !attacker.Owns("automation_factory") || attacker.TakeoverWins != 1 {
		t.Fatalf("attacker got %+v", attacker)
	}
	if defender.Owns("automation_factory") || defender.CreditBalance != 37 || defender.DefenseReserve != 0 {
		t.Fatalf("defender got %+v", defender)
	}
	if defender.Slots.Slots[0].BusinessID != "" || defender.Slots.TotalSynergyMultiplier != 1 {
		t.Fatalf("defender slots got %+v", defender.Slots)
	}

	lost := TakeoverResult{Success: false, FinalBid: 50, Currency: CurrencyCredits}
	e.ApplyTakeover(&attacker, &defender, lost, t0)
	if attacker.CreditBalance != 37 || attacker.TakeoverLosses != 1 || defender.TakeoverWins != 1 {
		t.Fatalf("after failure attacker=%+v defender=%+v", attacker, defender)
	}
}

func TestApplyTakeoverDropsLostBusinessEffects(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	attacker := newPlayer("a", veteran)
	attacker.CreditBalance = 200
	defender := newPlayer("d", veteran, "cyber_security", "market_research")
	until := t0.Add(2 * time.Hour)
	defender.Sustained = SustainedEffect{BusinessID: "cyber_security", Until: until}
	defender.ActiveEffects = map[string]TimedEffect{
		"system_disruption": {Name: "System Disruption", Until: until},
		"market_boost":      {Name: "Market Boost", Until: until},
	}
	if !e.HasActiveProtection(defender, "system_disruption", t0) {
		t.Fatalf("effect should be active before the takeover")
	}

	res := TakeoverResult{Success: true, FinalBid: 90, Currency: CurrencyCredits, Compensation: 30, BusinessTransferred: "cyber_security"}
	e.ApplyTakeover(&attacker, &defender, res, t0)

	if defender.Owns("cyber_security") || defender.Sustained.BusinessID != "" {
		t.Fatalf("defender got %+v", defender)
	}
	if e.HasActiveProtection(defender, "system_disruption", t0) {
		t.Fatalf("effect of a lost business still active")
	}
	if _, ok := defender.ActiveEffects["market_boost"]; !ok {
		t.Fatalf("unrelated effect removed: %v", defender.ActiveEffects)
	}
}

func TestHasActiveProtection(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	p := newPlayer("p", veteran, "security_firm", "government_contract")
	for _, kind := range []string{"fortress", "FORTRESS protection", "immunity"} {
		if !e.HasActiveProtection(p, kind, t0) {
			t.Fatalf("%q should be active", kind)
		}
	}
	if e.HasActiveProtection(p, "insurance", t0) {
		t.Fatalf("insurance is not a protection name")
	}

	q := newPlayer("q", veteran)
	q.ActiveEffects = map[string]TimedEffect{"shield": {Name: "Shield", Until: t0.Add(time.Hour)}}
	if !e.HasActiveProtection(q, "shield", t0) {
		t.Fatalf("unexpired effect should protect")
	}
	if e.HasActiveProtection(q, "shield", t0.Add(time.Hour)) {
		t.Fatalf("expired effect should not protect")
	}
}
