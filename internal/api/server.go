package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wealthwars/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const playerContextKey contextKey = "player"

// PlayerHeader identifies the acting player on /v1 routes that need one.
const PlayerHeader = "X-Player-ID"

type Server struct {
	log  *slog.Logger
	game *game.Service
	ws   http.Handler
	mux  *chi.Mux
}

// New builds the router. ws may be nil when no realtime hub is running.
func New(logger *slog.Logger, gameSvc *game.Service, ws http.Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:  logger,
		game: gameSvc,
		ws:   ws,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if s.ws != nil {
		r.Get("/ws", s.ws.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/players", s.handleRegister)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/synergies", s.handleSynergies)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/leaderboard/war", s.handleWARLeaderboard)
		r.Get("/players/{id}/eligibility", s.handleEligibility)
		r.Get("/players/{id}/protection/{kind}", s.handleProtection)

		r.Group(func(r chi.Router) {
			r.Use(s.playerMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/businesses/{id}/buy", s.handleBuy)
			r.Post("/businesses/{id}/activate", s.handleActivate)
			r.Post("/businesses/{id}/maintain", s.handleMaintain)
			r.Put("/slots/{slot}", s.handleAssignSlot)
			r.Delete("/slots/{slot}", s.handleClearSlot)
			r.Post("/work-frequency", s.handleWorkFrequency)
			r.Post("/defense", s.handleDefense)
			r.Post("/takeovers/quote", s.handleQuote)
			r.Post("/takeovers", s.handleAttack)
		})
	})
}

func (s *Server) playerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(PlayerHeader))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing "+PlayerHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), playerContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func playerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerContextKey).(string)
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.game.RegisterPlayer(r.Context(), in.ID, in.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type abilityView struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Type            game.AbilityType `json:"type"`
	Mode            game.EffectMode  `json:"mode"`
	Cost            int64            `json:"cost"`
	CooldownMinutes int64            `json:"cooldown_minutes,omitempty"`
	DurationMinutes int64            `json:"duration_minutes,omitempty"`
	Uses            int              `json:"uses,omitempty"`
}

type businessView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Cost           int64         `json:"cost"`
	Category       game.Category `json:"category"`
	Tier           game.Tier     `json:"tier"`
	Rarity         game.Rarity   `json:"rarity"`
	WorkMultiplier float64       `json:"work_multiplier"`
	Prerequisites  []string      `json:"prerequisites,omitempty"`
	Ability        abilityView   `json:"ability"`
}

func viewBusiness(def game.BusinessDefinition) businessView {
	ab := abilityView{
		ID:              def.Ability.ID,
		Name:            def.Ability.Name,
		Description:     def.Ability.Description,
		Type:            def.Ability.Type,
		Mode:            def.Ability.Mode(),
		Cost:            def.Ability.Cost(),
		CooldownMinutes: int64(def.Ability.Cooldown() / time.Minute),
	}
	switch eff := def.Ability.Effect.(type) {
	case game.Instant:
		ab.Uses = eff.Uses
	case game.Sustained:
		ab.DurationMinutes = int64(eff.Duration / time.Minute)
	}
	return businessView{
		ID:             def.ID,
		Name:           def.Name,
		Description:    def.Description,
		Cost:           def.Cost,
		Category:       def.Category,
		Tier:           def.Tier,
		Rarity:         def.Rarity,
		WorkMultiplier: def.WorkMultiplier,
		Prerequisites:  def.Prerequisites,
		Ability:        ab,
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	defs := s.game.Engine().Catalog().All()
	out := make([]businessView, 0, len(defs))
	for _, def := range defs {
		out = append(out, viewBusiness(def))
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": out})
}

func (s *Server) handleSynergies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sets": game.SynergySets})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Profile(r.Context(), playerFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.PurchaseBusiness(r.Context(), playerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type maintainRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleMaintain(w http.ResponseWriter, r *http.Request) {
	var req maintainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.game.PerformMaintenance(r.Context(), playerFromContext(r.Context()), chi.URLParam(r, "id"), req.Action)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	act, err := s.game.ActivateAbility(r.Context(), playerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

func (s *Server) handleAssignSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	var in struct {
		BusinessID string `json:"business_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.game.AssignSlot(r.Context(), playerFromContext(r.Context()), in.BusinessID, slotID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	sys, err := s.game.RemoveSlot(r.Context(), playerFromContext(r.Context()), slotID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handleWorkFrequency(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Tier string `json:"tier"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sys, err := s.game.SetWorkFrequency(r.Context(), playerFromContext(r.Context()), in.Tier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handleDefense(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.game.Defend(r.Context(), playerFromContext(r.Context()), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"defense_reserve": p.DefenseReserve,
		"credit_balance":  p.CreditBalance,
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Eligibility(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProtection(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	ok, err := s.game.Protection(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "active": ok})
}

type takeoverRequest struct {
	DefenderID string `json:"defender_id"`
	BusinessID string `json:"business_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

func (s *Server) decodeTakeover(r *http.Request) (game.TakeoverInput, error) {
	var in takeoverRequest
	if err := decodeJSON(r, &in); err != nil {
		return game.TakeoverInput{}, err
	}
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = string(game.CurrencyCredits)
	}
	return game.TakeoverInput{
		AttackerID:     playerFromContext(r.Context()),
		DefenderID:     in.DefenderID,
		BusinessID:     in.BusinessID,
		Amount:         in.Amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey(r),
	}, nil
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeTakeover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := s.game.QuoteTakeover(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeTakeover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.Attack(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.serveLeaderboard(w, r, s.game.Leaderboard)
}

func (s *Server) handleWARLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.serveLeaderboard(w, r, s.game.WARLeaderboard)
}

func (s *Server) serveLeaderboard(w http.ResponseWriter, r *http.Request, rank func(context.Context, int) ([]game.LeaderboardRow, error)) {
	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	out, err := rank(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateBid), errors.Is(err, game.ErrTxConflict),
		errors.Is(err, game.ErrPlayerExists), errors.Is(err, game.ErrAlreadyOwned),
		errors.Is(err, game.ErrSustainedRunning), errors.Is(err, game.ErrUpgradeConsumed),
		errors.Is(err, game.ErrChargesExhausted), errors.Is(err, game.ErrBusinessOffline),
		errors.Is(err, game.ErrBusinessBroken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrAbilityOnCooldown), errors.Is(err, game.ErrSlotCooldown):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrBusinessNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotOwned), errors.Is(err, game.ErrTargetProtected),
		errors.Is(err, game.ErrTargetIneligible), errors.Is(err, game.ErrTargetNotOwner),
		errors.Is(err, game.ErrSelfTarget):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrBidTooLow),
		errors.Is(err, game.ErrInvalidCurrency), errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidSlot), errors.Is(err, game.ErrSlotLocked),
		errors.Is(err, game.ErrInvalidTier), errors.Is(err, game.ErrPassiveAbility),
		errors.Is(err, game.ErrPrerequisite), errors.Is(err, game.ErrIdempotencyKey),
		errors.Is(err, game.ErrInvalidPlayerInput), errors.Is(err, game.ErrInvalidMaintenance):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}
