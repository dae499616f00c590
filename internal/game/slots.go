package game

import (
	"fmt"
	"time"
)

// GetMaxSlots returns the number of unlocked slots for a work frequency tier.
// Unknown tiers get the novice allowance.
func GetMaxSlots(wf WorkFrequency) int {
	if n, ok := slotLimits[wf]; ok {
		return n
	}
	return slotLimits[WorkNovice]
}

func NewSlotSystem(wf WorkFrequency) BusinessSlotSystem {
	n := GetMaxSlots(wf)
	slots := make([]ActiveSlot, n)
	for i := range slots {
		slots[i].SlotID = i
	}
	return BusinessSlotSystem{
		Slots:                  slots,
		MaxSlots:               n,
		SynergyBonuses:         []SynergyBonus{},
		TotalSynergyMultiplier: 1,
	}
}

func CanEditSlots(sys BusinessSlotSystem, now time.Time) bool {
	return !now.Before(sys.SlotCooldownUntil)
}

func synergyStep(count int) int {
	switch {
	case count >= 4:
		return 75
	case count == 3:
		return 50
	case count == 2:
		return 25
	default:
		return 0
	}
}

// CalculateSynergyBonuses counts slotted businesses that are also owned, per
// category, and returns one bonus for each category with two or more.
func (e *Engine) CalculateSynergyBonuses(slots []ActiveSlot, owned []string) []SynergyBonus {
	ownedSet := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(slots))
	counts := make(map[Category]int)
	for _, s := range slots {
		if s.BusinessID == "" {
			continue
		}
		if _, ok := ownedSet[s.BusinessID]; !ok {
			continue
		}
		if _, dup := seen[s.BusinessID]; dup {
			continue
		}
		seen[s.BusinessID] = struct{}{}
		def, ok := e.catalog.Find(s.BusinessID)
		if !ok {
			continue
		}
		counts[def.Category]++
	}

	bonuses := []SynergyBonus{}
	for _, cat := range Categories {
		n := counts[cat]
		bonus := synergyStep(n)
		if bonus == 0 {
			continue
		}
		bonuses = append(bonuses, SynergyBonus{
			Category:    cat,
			Count:       n,
			Bonus:       bonus,
			Description: fmt.Sprintf("%dx %s businesses: +%d%% effectiveness", n, cat, bonus),
		})
	}
	return bonuses
}

// CalculateTotalSynergyMultiplier sums bonuses across categories.
func CalculateTotalSynergyMultiplier(bonuses []SynergyBonus) float64 {
	total := 0
	for _, b := range bonuses {
		total += b.Bonus
	}
	return 1 + float64(total)/100
}

func slotCooldownErr(sys BusinessSlotSystem, now time.Time) error {
	if CanEditSlots(sys, now) {
		return nil
	}
	return fmt.Errorf("%w: %d minutes remaining", ErrSlotCooldown, ceilMinutes(sys.SlotCooldownUntil.Sub(now)))
}

// AssignBusinessToSlot returns the slot array with businessID placed in
// slotID. A business already slotted elsewhere is moved; the previous
// occupant of slotID becomes unassigned. The edit cooldown is not armed here.
func (e *Engine) AssignBusinessToSlot(p Player, businessID string, slotID int, now time.Time) ([]ActiveSlot, error) {
	if err := slotCooldownErr(p.Slots, now); err != nil {
		return nil, err
	}
	if !p.Owns(businessID) {
		return nil, ErrNotOwned
	}
	if slotID < 0 || slotID >= len(p.Slots.Slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slotID)
	}
	if slotID >= GetMaxSlots(p.WorkFrequency) {
		return nil, fmt.Errorf("%w: slot %d needs a higher tier than %s", ErrSlotLocked, slotID, p.WorkFrequency)
	}

	slots := append([]ActiveSlot(nil), p.Slots.Slots...)
	for i := range slots {
		if i != slotID && slots[i].BusinessID == businessID {
			slots[i].BusinessID = ""
			slots[i].ActivatedAt = time.Time{}
		}
	}
	slots[slotID] = ActiveSlot{SlotID: slotID, BusinessID: businessID, ActivatedAt: now}
	return slots, nil
}

// RemoveBusinessFromSlot clears slotID. Locked slots may still be cleared.
func (e *Engine) RemoveBusinessFromSlot(p Player, slotID int, now time.Time) ([]ActiveSlot, error) {
	if err := slotCooldownErr(p.Slots, now); err != nil {
		return nil, err
	}
	if slotID < 0 || slotID >= len(p.Slots.Slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slotID)
	}
	slots := append([]ActiveSlot(nil), p.Slots.Slots...)
	slots[slotID] = ActiveSlot{SlotID: slotID}
	return slots, nil
}

// ArmSlotCooldown records a slot edit at now.
func (e *Engine) ArmSlotCooldown(sys *BusinessSlotSystem, now time.Time) {
	sys.LastSlotChange = now
	sys.SlotCooldownUntil = now.Add(e.rules.SlotEditCooldown)
}

// RefreshSlotSystem recomputes the derived slot fields of p: the unlocked
// slot count, synergy over unlocked slots, and each business's Active flag.
// The slot array grows with the tier but never shrinks.
func (e *Engine) RefreshSlotSystem(p *Player) {
	sys := &p.Slots
	sys.MaxSlots = GetMaxSlots(p.WorkFrequency)
	for len(sys.Slots) < sys.MaxSlots {
		sys.Slots = append(sys.Slots, ActiveSlot{SlotID: len(sys.Slots)})
	}

	unlocked := sys.Slots[:sys.MaxSlots]
	sys.SynergyBonuses = e.CalculateSynergyBonuses(unlocked, p.OwnedBusinessIDs())
	sys.TotalSynergyMultiplier = CalculateTotalSynergyMultiplier(sys.SynergyBonuses)

	active := make(map[string]bool, len(unlocked))
	for _, s := range unlocked {
		if s.BusinessID != "" {
			active[s.BusinessID] = true
		}
	}
	for i := range p.Businesses {
		p.Businesses[i].Active = p.Businesses[i].Owned && active[p.Businesses[i].BusinessID]
	}
}

// clearBusinessSlots empties every slot holding businessID without touching
// the edit cooldown.
func clearBusinessSlots(sys *BusinessSlotSystem, businessID string) {
	for i := range sys.Slots {
		if sys.Slots[i].BusinessID == businessID {
			sys.Slots[i] = ActiveSlot{SlotID: sys.Slots[i].SlotID}
		}
	}
}
