package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthwars/internal/clock"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

var blockedNameFragments = []string{
	"admin",
	"mod",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

// Store persists player aggregates. UpdatePlayer and UpdatePlayers run fn
// against a private copy and commit only when fn returns nil.
type Store interface {
	CreatePlayer(ctx context.Context, p Player) error
	GetPlayer(ctx context.Context, id string) (Player, error)
	ListPlayers(ctx context.Context) ([]Player, error)
	UpdatePlayer(ctx context.Context, id string, fn func(p *Player) error) (Player, error)
	// UpdatePlayers changes two players atomically. A non-empty key is
	// claimed in the same transaction; a reused key fails with ErrDuplicateBid.
	UpdatePlayers(ctx context.Context, aID, bID, key string, fn func(a, b *Player) error) (Player, Player, error)
}

type Ranker interface {
	Submit(ctx context.Context, row LeaderboardRow) error
	Top(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

const (
	EventBusinessPurchased = "business:purchased"
	EventAbilityActivated  = "ability:activated"
	EventSlotUpdated       = "slot:updated"
	EventTakeoverResolved  = "takeover:resolved"
	EventDefenseFunded     = "defense:funded"
	EventMaintenance       = "maintenance:performed"
)

type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload"`
}

type Publisher interface {
	Publish(ev Event)
}

type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

type Deps struct {
	Engine    *Engine
	Store     Store
	Ranker    Ranker
	Publisher Publisher
	Clock     clock.Clock
	Rand      Roller
	Logger    *slog.Logger
}

type Service struct {
	engine *Engine
	store  Store
	ranker Ranker
	pub    Publisher
	clk    clock.Clock
	log    *slog.Logger
	mu     sync.Mutex
	rand   Roller
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Engine == nil {
		d.Engine = NewEngine(nil, DefaultRules())
	}
	if d.Publisher == nil {
		d.Publisher = NopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Rand == nil {
		d.Rand = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		engine: d.Engine,
		store:  d.Store,
		ranker: d.Ranker,
		pub:    d.Publisher,
		clk:    d.Clock,
		log:    d.Logger,
		rand:   d.Rand,
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

func (s *Service) RegisterPlayer(ctx context.Context, id, username string) (Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return Player{}, err
	}
	now := s.clk.Now()
	p := Player{
		ID:             id,
		Username:       username,
		CreditBalance:  StarterCredits,
		Wealth:         StarterWealth,
		AccountCreated: now,
		WorkFrequency:  WorkNovice,
		Businesses:     []PlayerBusinessState{},
		Slots:          NewSlotSystem(WorkNovice),
		ActiveEffects:  map[string]TimedEffect{},
	}
	s.engine.UpdateWAR(&p, "register", now)
	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return Player{}, err
	}
	s.log.Info("player registered", "player_id", p.ID, "username", p.Username)
	s.submitRank(ctx, p)
	return p, nil
}

func (s *Service) Player(ctx context.Context, id string) (Player, error) {
	return s.store.GetPlayer(ctx, id)
}

// Profile is a player with every derived value the UI renders.
type Profile struct {
	Player         Player              `json:"player"`
	PortfolioValue int64               `json:"portfolio_value"`
	Eligibility    TakeoverEligibility `json:"eligibility"`
	SynergySets    []SynergySet        `json:"synergy_sets"`
	SynergyEffects SynergyEffects      `json:"synergy_effects"`
	SetProgress    []SynergyProgress   `json:"set_progress"`
	SustainedLive  bool                `json:"sustained_live"`

	Conditions          []BusinessCondition         `json:"conditions"`
	PortfolioEfficiency float64                     `json:"portfolio_efficiency"`
	Recommendations     []MaintenanceRecommendation `json:"maintenance_recommendations"`
}

func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	p, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	now := s.clk.Now()
	owned := p.OwnedBusinessIDs()
	sets := s.engine.ActiveSynergySets(owned)
	report := s.engine.ConditionReport(p, now)
	return Profile{
		Player:         p,
		PortfolioValue: s.engine.PortfolioValue(p),
		Eligibility:    s.engine.CalculateTakeoverEligibility(p, now),
		SynergySets:    sets,
		SynergyEffects: SynergySetEffects(sets),
		SetProgress:    s.engine.SynergySetProgress(owned),
		SustainedLive:  p.Sustained.Running(now),

		Conditions:          report,
		PortfolioEfficiency: PortfolioEfficiency(report),
		Recommendations:     s.engine.RecommendMaintenance(p, p.CreditBalance, now),
	}, nil
}

// PurchaseBusiness pays the catalog cost in wealth.
func (s *Service) PurchaseBusiness(ctx context.Context, playerID, businessID string) (PlayerBusinessState, error) {
	def, err := s.engine.Catalog().Lookup(businessID)
	if err != nil {
		return PlayerBusinessState{}, err
	}
	now := s.clk.Now()
	var bought PlayerBusinessState
	p, err := s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		if p.Owns(def.ID) {
			return fmt.Errorf("%w: %s", ErrAlreadyOwned, def.ID)
		}
		for _, req := range def.Prerequisites {
			if _, known := s.engine.Catalog().Find(req); known && !p.Owns(req) {
				return fmt.Errorf("%w: %s requires %s", ErrPrerequisite, def.ID, req)
			}
		}
		if p.Wealth < def.Cost {
			return fmt.Errorf("%w: %s costs %d wealth, have %d", ErrInsufficientFunds, def.ID, def.Cost, p.Wealth)
		}
		p.Wealth -= def.Cost
		bought = NewBusinessState(def, now)
		p.Businesses = append(p.Businesses, bought)
		s.engine.RefreshSlotSystem(p)
		s.engine.UpdateWAR(p, "purchase", now)
		return nil
	})
	if err != nil {
		return PlayerBusinessState{}, err
	}
	s.log.Info("business purchased", "player_id", playerID, "business_id", def.ID, "cost", def.Cost)
	s.emit(EventBusinessPurchased, playerID, now, bought)
	s.submitRank(ctx, p)
	return bought, nil
}

// ActivateAbility fires the ability of an owned business and charges its cost
// in wealth.
func (s *Service) ActivateAbility(ctx context.Context, playerID, businessID string) (Activation, error) {
	def, err := s.engine.Catalog().Lookup(businessID)
	if err != nil {
		return Activation{}, err
	}
	now := s.clk.Now()
	var out Activation
	_, err = s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		st, ok := p.businessState(def.ID)
		if !ok {
			return ErrNotOwned
		}
		*st = DegradeCondition(*st, def, now)
		if err := CheckOperational(*st, now); err != nil {
			return err
		}
		act, err := s.engine.Activate(*st, def.Ability, now, p.Sustained, p.Wealth)
		if err != nil {
			return err
		}
		*st = act.State
		p.Sustained = act.Sustained
		p.Wealth -= act.Cost
		if act.Changed && act.Mode == ModeSustained {
			if p.ActiveEffects == nil {
				p.ActiveEffects = map[string]TimedEffect{}
			}
			p.ActiveEffects[def.Ability.ID] = TimedEffect{Name: def.Ability.Name, Until: act.ExpiresAt}
		}
		if act.Cost > 0 {
			s.engine.UpdateWAR(p, "ability", now)
		}
		out = act
		return nil
	})
	if err != nil {
		s.log.Warn("ability activation rejected", "player_id", playerID, "business_id", businessID, "error", err)
		return Activation{}, err
	}
	if out.Changed {
		s.log.Info("ability activated", "player_id", playerID, "business_id", def.ID, "mode", out.Mode, "cost", out.Cost)
		s.emit(EventAbilityActivated, playerID, now, map[string]any{
			"business_id": def.ID,
			"ability_id":  def.Ability.ID,
			"mode":        out.Mode,
			"expires_at":  out.ExpiresAt,
		})
	}
	return out, nil
}

// PerformMaintenance runs a maintenance action on an owned business, paid in
// credits.
func (s *Service) PerformMaintenance(ctx context.Context, playerID, businessID, action string) (MaintenanceRecord, error) {
	kind, err := ParseMaintenanceKind(action)
	if err != nil {
		return MaintenanceRecord{}, err
	}
	def, err := s.engine.Catalog().Lookup(businessID)
	if err != nil {
		return MaintenanceRecord{}, err
	}
	now := s.clk.Now()
	var rec MaintenanceRecord
	_, err = s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		st, ok := p.businessState(def.ID)
		if !ok {
			return ErrNotOwned
		}
		next, r, err := s.engine.PerformMaintenance(*st, def, kind, p.OwnedBusinessIDs(), p.CreditBalance, now)
		if err != nil {
			return err
		}
		*st = next
		p.CreditBalance -= r.Cost
		p.MaintenanceSpent += r.Cost
		rec = r
		return nil
	})
	if err != nil {
		return MaintenanceRecord{}, err
	}
	s.log.Info("maintenance performed",
		"player_id", playerID,
		"business_id", def.ID,
		"kind", kind,
		"cost", rec.Cost,
		"condition", rec.ConditionAfter,
	)
	s.emit(EventMaintenance, playerID, now, rec)
	return rec, nil
}

func (s *Service) AssignSlot(ctx context.Context, playerID, businessID string, slotID int) (BusinessSlotSystem, error) {
	return s.editSlots(ctx, playerID, slotID, func(p Player, now time.Time) ([]ActiveSlot, error) {
		return s.engine.AssignBusinessToSlot(p, businessID, slotID, now)
	})
}

func (s *Service) RemoveSlot(ctx context.Context, playerID string, slotID int) (BusinessSlotSystem, error) {
	return s.editSlots(ctx, playerID, slotID, func(p Player, now time.Time) ([]ActiveSlot, error) {
		return s.engine.RemoveBusinessFromSlot(p, slotID, now)
	})
}

func (s *Service) editSlots(ctx context.Context, playerID string, slotID int, edit func(Player, time.Time) ([]ActiveSlot, error)) (BusinessSlotSystem, error) {
	now := s.clk.Now()
	p, err := s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		slots, err := edit(*p, now)
		if err != nil {
			return err
		}
		p.Slots.Slots = slots
		s.engine.ArmSlotCooldown(&p.Slots, now)
		s.engine.RefreshSlotSystem(p)
		return nil
	})
	if err != nil {
		return BusinessSlotSystem{}, err
	}
	s.log.Info("slots updated", "player_id", playerID, "slot_id", slotID, "multiplier", p.Slots.TotalSynergyMultiplier)
	s.emit(EventSlotUpdated, playerID, now, p.Slots)
	return p.Slots, nil
}

func (s *Service) SetWorkFrequency(ctx context.Context, playerID, tier string) (BusinessSlotSystem, error) {
	wf, err := ParseWorkFrequency(tier)
	if err != nil {
		return BusinessSlotSystem{}, err
	}
	now := s.clk.Now()
	p, err := s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		p.WorkFrequency = wf
		s.engine.RefreshSlotSystem(p)
		return nil
	})
	if err != nil {
		return BusinessSlotSystem{}, err
	}
	s.log.Info("work frequency changed", "player_id", playerID, "tier", wf, "max_slots", p.Slots.MaxSlots)
	s.emit(EventSlotUpdated, playerID, now, p.Slots)
	return p.Slots, nil
}

// Defend moves credits into the reserve spent by the next attack against
// the player.
func (s *Service) Defend(ctx context.Context, playerID string, amount int64) (Player, error) {
	if amount <= 0 {
		return Player{}, ErrInvalidAmount
	}
	now := s.clk.Now()
	p, err := s.store.UpdatePlayer(ctx, playerID, func(p *Player) error {
		if p.CreditBalance < amount {
			return fmt.Errorf("%w: have %d credits", ErrInsufficientFunds, p.CreditBalance)
		}
		p.CreditBalance -= amount
		p.DefenseReserve += amount
		return nil
	})
	if err != nil {
		return Player{}, err
	}
	s.log.Info("defense funded", "player_id", playerID, "amount", amount, "reserve", p.DefenseReserve)
	s.emit(EventDefenseFunded, playerID, now, map[string]int64{"reserve": p.DefenseReserve})
	return p, nil
}

func (s *Service) Eligibility(ctx context.Context, playerID string) (TakeoverEligibility, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return TakeoverEligibility{}, err
	}
	return s.engine.CalculateTakeoverEligibility(p, s.clk.Now()), nil
}

func (s *Service) Protection(ctx context.Context, playerID, kind string) (bool, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	return s.engine.HasActiveProtection(p, kind, s.clk.Now()), nil
}

type TakeoverInput struct {
	AttackerID     string `json:"attacker_id"`
	DefenderID     string `json:"defender_id"`
	BusinessID     string `json:"business_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type Quote struct {
	BusinessID  string   `json:"business_id"`
	Currency    Currency `json:"currency"`
	MinimumBid  int64    `json:"minimum_bid"`
	CreditCost  int64    `json:"credit_cost"`
	Amount      int64    `json:"amount"`
	SuccessRate int      `json:"success_rate"`
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason,omitempty"`
}

// QuoteTakeover prices an attack without resolving it. A zero amount is
// quoted at the minimum bid.
func (s *Service) QuoteTakeover(ctx context.Context, in TakeoverInput) (Quote, error) {
	currency, err := ParseCurrency(in.Currency)
	if err != nil {
		return Quote{}, err
	}
	def, err := s.engine.Catalog().Lookup(in.BusinessID)
	if err != nil {
		return Quote{}, err
	}
	attacker, err := s.store.GetPlayer(ctx, in.AttackerID)
	if err != nil {
		return Quote{}, err
	}
	defender, err := s.store.GetPlayer(ctx, in.DefenderID)
	if err != nil {
		return Quote{}, err
	}
	now := s.clk.Now()
	q := Quote{
		BusinessID: def.ID,
		Currency:   currency,
		MinimumBid: s.engine.CalculateTakeoverCost(def, currency),
		CreditCost: s.engine.CalculateTakeoverCost(def, CurrencyCredits),
		Amount:     in.Amount,
	}
	if q.Amount <= 0 {
		q.Amount = q.MinimumBid
	}
	bid := NewBid(attacker.ID, defender.ID, def, q.Amount, currency, now)
	q.SuccessRate = s.engine.CalculateSuccessRate(attacker, defender, bid, defender.DefenseReserve)
	if err := s.engine.ValidateTakeoverBid(attacker, defender, def.ID, q.Amount, currency, now); err != nil {
		q.Reason = err.Error()
	} else {
		q.Valid = true
	}
	return q, nil
}

// Attack validates and resolves a takeover in one store transaction. The
// roll is drawn before the transaction so a store retry reuses it.
func (s *Service) Attack(ctx context.Context, in TakeoverInput) (TakeoverResult, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.IdempotencyKey == "" {
		return TakeoverResult{}, ErrIdempotencyKey
	}
	if in.AttackerID == in.DefenderID {
		return TakeoverResult{}, ErrSelfTarget
	}
	currency, err := ParseCurrency(in.Currency)
	if err != nil {
		return TakeoverResult{}, err
	}
	def, err := s.engine.Catalog().Lookup(in.BusinessID)
	if err != nil {
		return TakeoverResult{}, err
	}

	now := s.clk.Now()
	roll := FixedRoller(s.nextFloat())
	var res TakeoverResult
	attacker, defender, err := s.store.UpdatePlayers(ctx, in.AttackerID, in.DefenderID, in.IdempotencyKey, func(a, d *Player) error {
		if err := s.engine.ValidateTakeoverBid(*a, *d, def.ID, in.Amount, currency, now); err != nil {
			return err
		}
		bid := NewBid(a.ID, d.ID, def, in.Amount, currency, now)
		if err := bid.Advance(StatusValidated); err != nil {
			return err
		}
		var defense *DefenseResponse
		if d.DefenseReserve > 0 {
			defense = &DefenseResponse{DefenderID: d.ID, DefenseAmount: d.DefenseReserve}
		}
		out, err := s.engine.ExecuteTakeover(*a, *d, &bid, defense, roll, now)
		if err != nil {
			return err
		}
		s.engine.ApplyTakeover(a, d, out, now)
		s.engine.UpdateWAR(a, "takeover", now)
		s.engine.UpdateWAR(d, "takeover", now)
		res = out
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateBid) {
			s.log.Warn("duplicate takeover", "player_id", in.AttackerID, "idempotency_key", in.IdempotencyKey)
		}
		return TakeoverResult{}, err
	}

	s.log.Info("takeover resolved",
		"player_id", in.AttackerID,
		"defender_id", in.DefenderID,
		"business_id", def.ID,
		"success", res.Success,
		"success_rate", res.SuccessRate,
		"roll", res.Roll,
	)
	s.emit(EventTakeoverResolved, in.AttackerID, now, res)
	s.submitRank(ctx, attacker)
	s.submitRank(ctx, defender)
	return res, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if s.ranker != nil {
		return s.ranker.Top(ctx, limit)
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, s.rowFor(p))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = int64(i + 1)
	}
	return rows, nil
}

// SyncLeaderboard pushes every player's current score to the ranker.
func (s *Service) SyncLeaderboard(ctx context.Context) (int, error) {
	if s.ranker == nil {
		return 0, nil
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range players {
		if err := s.ranker.Submit(ctx, s.rowFor(p)); err != nil {
			return 0, err
		}
	}
	return len(players), nil
}

// SweepExpiredEffects drops elapsed sustained and timed effects from stored
// state. Reads never depend on it.
func (s *Service) SweepExpiredEffects(ctx context.Context) (int, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clk.Now()
	swept := 0
	for _, p := range players {
		if !hasExpiredEffects(p, now) {
			continue
		}
		if _, err := s.store.UpdatePlayer(ctx, p.ID, func(p *Player) error {
			clearExpiredEffects(p, now)
			return nil
		}); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func hasExpiredEffects(p Player, now time.Time) bool {
	if p.Sustained.BusinessID != "" && !p.Sustained.Running(now) {
		return true
	}
	for _, eff := range p.ActiveEffects {
		if !now.Before(eff.Until) {
			return true
		}
	}
	return false
}

func clearExpiredEffects(p *Player, now time.Time) {
	if p.Sustained.BusinessID != "" && !p.Sustained.Running(now) {
		p.Sustained = SustainedEffect{}
	}
	for k, eff := range p.ActiveEffects {
		if !now.Before(eff.Until) {
			delete(p.ActiveEffects, k)
		}
	}
}

// ProcessDegradation persists condition wear for every owned business.
func (s *Service) ProcessDegradation(ctx context.Context) (int, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clk.Now()
	updated := 0
	for _, p := range players {
		if len(p.Businesses) == 0 {
			continue
		}
		if _, err := s.store.UpdatePlayer(ctx, p.ID, func(p *Player) error {
			for i, b := range p.Businesses {
				if def, ok := s.engine.Catalog().Find(b.BusinessID); ok && b.Owned {
					p.Businesses[i] = DegradeCondition(b, def, now)
				}
			}
			return nil
		}); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// WARLeaderboard ranks players by wealth-to-asset ratio.
func (s *Service) WARLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, s.rowFor(p))
	}
	rows = RankByWAR(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Service) rowFor(p Player) LeaderboardRow {
	portfolio := s.engine.PortfolioValue(p)
	war := CalculateWAR(p.Wealth, portfolio)
	return LeaderboardRow{
		PlayerID:       p.ID,
		Username:       p.Username,
		Score:          s.engine.LeaderboardScore(p),
		PortfolioValue: portfolio,
		Businesses:     len(p.OwnedBusinessIDs()),
		WAR:            war,
		WARRating:      WARRatingFor(war),
	}
}

func (s *Service) submitRank(ctx context.Context, p Player) {
	if s.ranker == nil {
		return
	}
	if err := s.ranker.Submit(ctx, s.rowFor(p)); err != nil {
		s.log.Warn("leaderboard submit failed", "player_id", p.ID, "error", err)
	}
}

func (s *Service) emit(kind, playerID string, at time.Time, payload any) {
	s.pub.Publish(Event{
		ID:       uuid.NewString(),
		Type:     kind,
		PlayerID: playerID,
		At:       at,
		Payload:  payload,
	})
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func validateUsername(name string) error {
	if !usernameRE.MatchString(name) {
		return fmt.Errorf("%w: username must be 3-24 letters, digits or underscores", ErrInvalidPlayerInput)
	}
	lower := strings.ToLower(name)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: username contains blocked content", ErrInvalidPlayerInput)
		}
	}
	return nil
}
