package game

import (
	"fmt"
	"time"
)

// NewBusinessState is the state created at purchase time.
func NewBusinessState(def BusinessDefinition, now time.Time) PlayerBusinessState {
	st := PlayerBusinessState{
		BusinessID:  def.ID,
		Owned:       true,
		PurchasedAt: now,

		Condition:          MaxCondition,
		ConditionCheckedAt: now,
		LastMaintained:     now,
	}
	if in, ok := def.Ability.Effect.(Instant); ok {
		st.AbilityCharges = in.Uses
	}
	return st
}

// CheckActivation reports why an ability cannot fire now, or nil if it can.
func (e *Engine) CheckActivation(st PlayerBusinessState, ab Ability, now time.Time, sustained SustainedEffect, balance int64) error {
	if !st.Owned {
		return ErrNotOwned
	}
	switch eff := ab.Effect.(type) {
	case nil, Passive:
		return ErrPassiveAbility
	case Upgrade:
		if st.ConsumedUpgrade {
			return ErrUpgradeConsumed
		}
	case Instant:
		if err := cooldownErr(st.LastActivated, eff.Cooldown, now); err != nil {
			return err
		}
		if eff.Uses > 0 && e.chargesAvailable(st, eff, now) <= 0 {
			return ErrChargesExhausted
		}
	case Sustained:
		if sustained.Running(now) {
			if sustained.BusinessID == st.BusinessID {
				// Re-check of the running effect; Activate leaves state alone.
				return nil
			}
			return fmt.Errorf("%w: %s until %s", ErrSustainedRunning, sustained.BusinessID, sustained.Until.UTC().Format(time.RFC3339))
		}
		if err := cooldownErr(st.LastActivated, eff.Cooldown, now); err != nil {
			return err
		}
	}
	if cost := ab.Cost(); balance < cost {
		return fmt.Errorf("%w: ability costs %d, have %d", ErrInsufficientFunds, cost, balance)
	}
	return nil
}

func (e *Engine) CanActivate(st PlayerBusinessState, ab Ability, now time.Time, sustained SustainedEffect, balance int64) bool {
	return e.CheckActivation(st, ab, now, sustained, balance) == nil
}

type Activation struct {
	State     PlayerBusinessState `json:"state"`
	Sustained SustainedEffect     `json:"sustained"`
	Mode      EffectMode          `json:"mode"`
	Cost      int64               `json:"cost"`
	ExpiresAt time.Time           `json:"expires_at,omitempty"`
	// Changed is false when the call was an idempotent re-check of the
	// sustained ability that is already running.
	Changed bool `json:"changed"`
}

// Activate fires an ability. On error the returned state equals the input.
func (e *Engine) Activate(st PlayerBusinessState, ab Ability, now time.Time, sustained SustainedEffect, balance int64) (Activation, error) {
	out := Activation{State: st, Sustained: sustained, Mode: ab.Mode()}
	if err := e.CheckActivation(st, ab, now, sustained, balance); err != nil {
		return out, err
	}

	switch eff := ab.Effect.(type) {
	case Instant:
		if eff.Uses > 0 {
			out.State.AbilityCharges = e.chargesAvailable(st, eff, now) - 1
		}
		out.State.LastActivated = now
	case Sustained:
		if sustained.Running(now) && sustained.BusinessID == st.BusinessID {
			out.ExpiresAt = sustained.Until
			return out, nil
		}
		out.State.LastActivated = now
		out.Sustained = SustainedEffect{
			BusinessID: st.BusinessID,
			StartedAt:  now,
			Until:      now.Add(eff.Duration),
		}
		out.ExpiresAt = out.Sustained.Until
	case Upgrade:
		out.State.ConsumedUpgrade = true
		out.State.LastActivated = now
	}
	out.Cost = ab.Cost()
	out.Changed = true
	return out, nil
}

// SustainedActive reports whether businessID's sustained effect is still running.
func SustainedActive(sustained SustainedEffect, businessID string, now time.Time) bool {
	return sustained.BusinessID == businessID && sustained.Running(now)
}

// PassiveActive reports whether a passive ability currently applies. Passive
// abilities are implicitly always on, so ownership is the only condition.
func PassiveActive(st PlayerBusinessState, ab Ability) bool {
	if ab.Mode() != ModePassive {
		return false
	}
	return st.Owned
}

// CooldownRemaining returns how long until the ability can fire again on the
// cooldown axis alone.
func CooldownRemaining(st PlayerBusinessState, ab Ability, now time.Time) time.Duration {
	cd := ab.Cooldown()
	if cd <= 0 || st.LastActivated.IsZero() {
		return 0
	}
	left := st.LastActivated.Add(cd).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (e *Engine) chargesAvailable(st PlayerBusinessState, eff Instant, now time.Time) int {
	if st.AbilityCharges > 0 {
		return st.AbilityCharges
	}
	if st.LastActivated.IsZero() {
		return eff.Uses
	}
	refill := e.rules.ChargeRefillAfter
	if refill > 0 && !st.LastActivated.IsZero() && now.Sub(st.LastActivated) >= refill {
		return eff.Uses
	}
	return st.AbilityCharges
}

func cooldownErr(last time.Time, cooldown time.Duration, now time.Time) error {
	if cooldown <= 0 || last.IsZero() {
		return nil
	}
	if elapsed := now.Sub(last); elapsed < cooldown {
		return fmt.Errorf("%w: %d minutes remaining", ErrAbilityOnCooldown, ceilMinutes(cooldown-elapsed))
	}
	return nil
}
