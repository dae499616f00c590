package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wealthwars/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type catalogPayload struct {
	Businesses []catalogBusiness `json:"businesses"`
}

type catalogBusiness struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     int64  `json:"cost"`
	Category string `json:"category"`
	Tier     string `json:"tier"`
	Ability  struct {
		Name            string `json:"name"`
		Mode            string `json:"mode"`
		Cost            int64  `json:"cost"`
		CooldownMinutes int64  `json:"cooldown_minutes"`
		DurationMinutes int64  `json:"duration_minutes"`
		Uses            int    `json:"uses"`
	} `json:"ability"`
}

type leaderboardPayload struct {
	Rows []game.LeaderboardRow `json:"rows"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderCatalog(raw map[string]any) error {
	out, err := decodeInto[catalogPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== BUSINESSES ==")
	fmt.Printf("%-20s %-11s %-10s %6s  %-22s %-10s %s\n", "ID", "CATEGORY", "TIER", "COST", "ABILITY", "MODE", "TIMING")
	for _, b := range out.Businesses {
		fmt.Printf("%-20s %-11s %-10s %6d  %-22s %-10s %s\n",
			truncate(b.ID, 20),
			b.Category,
			b.Tier,
			b.Cost,
			truncate(b.Ability.Name, 22),
			b.Ability.Mode,
			abilityTiming(b),
		)
	}
	fmt.Println()
	return nil
}

func abilityTiming(b catalogBusiness) string {
	var parts []string
	if b.Ability.Cost > 0 {
		parts = append(parts, fmt.Sprintf("cost %d", b.Ability.Cost))
	}
	if b.Ability.CooldownMinutes > 0 {
		parts = append(parts, "cd "+minutes(b.Ability.CooldownMinutes))
	}
	if b.Ability.DurationMinutes > 0 {
		parts = append(parts, "lasts "+minutes(b.Ability.DurationMinutes))
	}
	if b.Ability.Uses > 0 {
		parts = append(parts, fmt.Sprintf("%d uses", b.Ability.Uses))
	}
	if len(parts) == 0 {
		return "always on"
	}
	return strings.Join(parts, ", ")
}

func renderProfile(raw map[string]any) error {
	out, err := decodeInto[game.Profile](raw)
	if err != nil {
		return err
	}
	p := out.Player
	accent.Printf("\n== %s ==\n", strings.ToUpper(p.Username))
	fmt.Printf("Wealth: %s   Credits: %s   Defense reserve: %s\n", comma(p.Wealth), comma(p.CreditBalance), comma(p.DefenseReserve))
	fmt.Printf("Portfolio: %s   Tier: %s   Takeovers: %s/%s\n",
		comma(out.PortfolioValue), p.WorkFrequency,
		success.Sprint(p.TakeoverWins), danger.Sprint(p.TakeoverLosses))
	fmt.Printf("WAR: %.3f (%s, %s, peak %.3f)   Efficiency: %.0f%%\n",
		p.WAR.Current, p.WAR.Rating, p.WAR.Trend, p.WAR.Peak, out.PortfolioEfficiency*100)
	if out.Eligibility.CanBeTargeted {
		warn.Printf("Targetable (protection: %s)\n", out.Eligibility.ProtectionLevel)
	} else {
		success.Printf("Protected: %s\n", out.Eligibility.Reason)
	}
	if out.SustainedLive {
		fmt.Printf("Sustained effect: %s until %s\n", p.Sustained.BusinessID, p.Sustained.Until.Local().Format(time.Kitchen))
	}

	conditions := make(map[string]game.BusinessCondition, len(out.Conditions))
	for _, c := range out.Conditions {
		conditions[c.BusinessID] = c
	}
	fmt.Println()
	fmt.Printf("%-20s %-8s %-8s %-10s %s\n", "BUSINESS", "ACTIVE", "CHARGES", "CONDITION", "LAST USED")
	for _, b := range p.Businesses {
		last := "-"
		if !b.LastActivated.IsZero() {
			last = b.LastActivated.Local().Format("Jan 2 15:04")
		}
		active := neutral.Sprint("no")
		if b.Active {
			active = success.Sprint("yes")
		}
		fmt.Printf("%-20s %-8s %-8d %-10s %s\n", truncate(b.BusinessID, 20), active, b.AbilityCharges, colorizeCondition(conditions[b.BusinessID]), last)
	}
	for _, rec := range out.Recommendations {
		warn.Printf("  %s: %s maintenance for %d credits\n", rec.BusinessID, rec.Kind, rec.Cost)
	}
	if len(p.Businesses) == 0 {
		printInfo("No businesses yet. Try `ww catalog`.")
	}

	renderSlotSystem(p.Slots)

	if len(out.SynergySets) > 0 {
		accent.Println("Synergy sets")
		for _, set := range out.SynergySets {
			fmt.Printf("  %s (priority %d)\n", set.Name, set.Priority)
		}
	}
	for _, prog := range out.SetProgress {
		if prog.Percent == 0 || prog.Percent >= 100 {
			continue
		}
		fmt.Printf("  %-20s %s  %s\n", prog.Set.Name, prog, strings.Join(prog.MissingRequirements, "; "))
	}
	fmt.Println()
	return nil
}

func renderMaintenance(raw map[string]any) error {
	rec, err := decodeInto[game.MaintenanceRecord](raw)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%s %s done for %d credits: condition %.0f%% -> %.0f%%.",
		rec.BusinessID, rec.Kind, rec.Cost, rec.ConditionBefore, rec.ConditionAfter)
	if rec.Downtime > 0 {
		msg += " Offline until " + rec.At.Add(rec.Downtime).Local().Format(time.Kitchen) + "."
	}
	printSuccess(msg)
	return nil
}

func colorizeCondition(c game.BusinessCondition) string {
	text := fmt.Sprintf("%.0f%%", c.Condition)
	if c.Offline {
		return warn.Sprint("offline")
	}
	switch c.WarningLevel {
	case game.WarningGood:
		return success.Sprint(text)
	case game.WarningCaution:
		return warn.Sprint(text)
	default:
		return danger.Sprint(text)
	}
}

func renderSlots(raw map[string]any) error {
	sys, err := decodeInto[game.BusinessSlotSystem](raw)
	if err != nil {
		return err
	}
	renderSlotSystem(sys)
	return nil
}

func renderSlotSystem(sys game.BusinessSlotSystem) {
	accent.Printf("\nSlots (%d unlocked, multiplier x%.2f)\n", sys.MaxSlots, sys.TotalSynergyMultiplier)
	for _, s := range sys.Slots {
		label := s.BusinessID
		if label == "" {
			label = neutral.Sprint("empty")
		}
		if s.SlotID >= sys.MaxSlots {
			label += danger.Sprint(" (locked)")
		}
		fmt.Printf("  [%d] %s\n", s.SlotID, label)
	}
	for _, b := range sys.SynergyBonuses {
		success.Printf("  %s\n", b.Description)
	}
	if !sys.SlotCooldownUntil.IsZero() && time.Now().Before(sys.SlotCooldownUntil) {
		warn.Printf("  Slots locked until %s\n", sys.SlotCooldownUntil.Local().Format(time.Kitchen))
	}
}

func renderActivation(raw map[string]any, businessID string) error {
	act, err := decodeInto[game.Activation](raw)
	if err != nil {
		return err
	}
	if !act.Changed {
		printInfo(fmt.Sprintf("%s is already running until %s.", businessID, act.ExpiresAt.Local().Format(time.Kitchen)))
		return nil
	}
	msg := fmt.Sprintf("Activated %s (%s) for %d wealth.", businessID, act.Mode, act.Cost)
	if act.Mode == game.ModeSustained {
		msg += " Runs until " + act.ExpiresAt.Local().Format(time.Kitchen) + "."
	}
	if act.Mode == game.ModeInstant && act.State.AbilityCharges > 0 {
		msg += fmt.Sprintf(" %d charges left.", act.State.AbilityCharges)
	}
	printSuccess(msg)
	return nil
}

func renderEligibility(raw map[string]any, playerID string) error {
	out, err := decodeInto[game.TakeoverEligibility](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== ELIGIBILITY %s ==\n", playerID)
	fmt.Printf("Portfolio value: %s\n", comma(out.PortfolioValue))
	if !out.CanBeTargeted {
		success.Printf("Cannot be attacked: %s\n\n", out.Reason)
		return nil
	}
	warn.Printf("Can be attacked (protection: %s, minimum bid %d)\n", out.ProtectionLevel, out.MinimumAttackCost)
	if len(out.ProtectedBusinesses) > 0 {
		fmt.Printf("Protected businesses: %s\n", strings.Join(out.ProtectedBusinesses, ", "))
	}
	fmt.Println()
	return nil
}

func renderQuote(raw map[string]any) error {
	q, err := decodeInto[game.Quote](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== QUOTE %s ==\n", q.BusinessID)
	fmt.Printf("Minimum bid: %d %s (credit cost %d)\n", q.MinimumBid, q.Currency, q.CreditCost)
	fmt.Printf("Bid %d -> success chance %s\n", q.Amount, colorizeRate(q.SuccessRate))
	if !q.Valid {
		danger.Printf("Not allowed: %s\n", q.Reason)
	}
	fmt.Println()
	return nil
}

func renderTakeover(raw map[string]any) error {
	res, err := decodeInto[game.TakeoverResult](raw)
	if err != nil {
		return err
	}
	fmt.Printf("Rolled %.1f against %s\n", res.Roll, colorizeRate(res.SuccessRate))
	if res.DefenseAttempted {
		fmt.Printf("Defender spent %d credits on defense.\n", res.DefenseAmount)
	}
	if res.Success {
		printSuccess(fmt.Sprintf("Takeover succeeded: %s is yours. Defender compensated %d.", res.BusinessTransferred, res.Compensation))
		return nil
	}
	printError(fmt.Sprintf("Takeover failed. Bid of %d %s forfeited.", res.FinalBid, res.Currency))
	return nil
}

func renderLeaderboard(raw map[string]any, title string) error {
	out, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(out.Rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return nil
	}
	fmt.Printf("%-6s %-18s %10s %12s %6s %8s\n", "RANK", "PLAYER", "SCORE", "PORTFOLIO", "BIZ", "WAR")
	for _, row := range out.Rows {
		fmt.Printf("%-6d %-18s %10s %12s %6d %8.3f\n",
			row.Rank,
			truncate(row.Username, 18),
			comma(row.Score),
			comma(row.PortfolioValue),
			row.Businesses,
			row.WAR,
		)
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeRate(rate int) string {
	text := fmt.Sprintf("%d%%", rate)
	switch {
	case rate >= 60:
		return success.Sprint(text)
	case rate <= 25:
		return danger.Sprint(text)
	default:
		return warn.Sprint(text)
	}
}

func minutes(m int64) string {
	switch {
	case m >= 24*60 && m%(24*60) == 0:
		return fmt.Sprintf("%dd", m/(24*60))
	case m >= 60 && m%60 == 0:
		return fmt.Sprintf("%dh", m/60)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
