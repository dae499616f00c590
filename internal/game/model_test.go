package game

import (
	"errors"
	"testing"
	"time"
)

func TestParseWorkFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want WorkFrequency
	}{
		{in: "novice", want: WorkNovice},
		{in: " Master ", want: WorkMaster},
		{in: "EXPERT", want: WorkExpert},
	}
	for _, tc := range tests {
		got, err := ParseWorkFrequency(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q got %q want %q", tc.in, got, tc.want)
		}
	}
	if _, err := ParseWorkFrequency("grandmaster"); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestParseCurrency(t *testing.T) {
	for _, s := range []string{"credits", "WEALTH"} {
		if _, err := ParseCurrency(s); err != nil {
			t.Fatalf("expected currency %q to be valid: %v", s, err)
		}
	}
	if _, err := ParseCurrency("gold"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestCeilMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{d: 0, want: 0},
		{d: -time.Minute, want: 0},
		{d: time.Second, want: 1},
		{d: time.Minute, want: 1},
		{d: 61 * time.Second, want: 2},
		{d: 4 * time.Hour, want: 240},
	}
	for _, tc := range tests {
		if got := ceilMinutes(tc.d); got != tc.want {
			t.Fatalf("d=%v got=%d want=%d", tc.d, got, tc.want)
		}
	}
}

func TestPlayerCloneIsDeep(t *testing.T) {
	p := Player{
		ID:            "p1",
		Businesses:    []PlayerBusinessState{{BusinessID: "market_research", Owned: true}},
		Slots:         NewSlotSystem(WorkApprentice),
		ActiveEffects: map[string]TimedEffect{"shield": {Name: "Shield"}},
	}
	c := p.Clone()
	c.Businesses[0].Owned = false
	c.Slots.Slots[0].BusinessID = "x"
	c.ActiveEffects["shield"] = TimedEffect{Name: "changed"}

	if !p.Businesses[0].Owned {
		t.Fatalf("clone shares businesses")
	}
	if p.Slots.Slots[0].BusinessID != "" {
		t.Fatalf("clone shares slots")
	}
	if p.ActiveEffects["shield"].Name != "Shield" {
		t.Fatalf("clone shares effects")
	}
}

func TestPlayerBalance(t *testing.T) {
	p := Player{CreditBalance: 40, Wealth: 7}
	p.adjustBalance(CurrencyWealth, -2)
	p.adjustBalance(CurrencyCredits, 10)
	if p.Balance(CurrencyWealth) != 5 || p.Balance(CurrencyCredits) != 50 {
		t.Fatalf("got credits=%d wealth=%d", p.CreditBalance, p.Wealth)
	}
}
