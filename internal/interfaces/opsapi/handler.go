package opsapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/team"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/venue"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

// Handler serves read-only matchmaking state plus team registration for operators.
type Handler struct {
	lineups    *usecase.LineupService
	challenges *usecase.ChallengeService
	teams      team.Repository
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(
	lineups *usecase.LineupService,
	challenges *usecase.ChallengeService,
	teams team.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		lineups:    lineups,
		challenges: challenges,
		teams:      teams,
		logger:     logger.Named("opsapi"),
		validator:  validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetVenueRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "opsapi.Handler.GetVenueRoster")
	defer span.End()

	key := venue.NewKey(r.PathValue("community"), r.PathValue("channel"))
	view, err := h.lineups.View(ctx, key)
	if err != nil {
		h.logger.WarnContext(ctx, "get venue roster failed", "venue", key.String(), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, rosterToDTO(view))
}

func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "opsapi.Handler.ListChallenges")
	defer span.End()

	items, err := h.challenges.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list challenges failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]challengeDTO, 0, len(items))
	for _, item := range items {
		out = append(out, challengeToDTO(item))
	}
	writeSuccess(w, http.StatusOK, out)
}

type upsertTeamRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	SixesChannels  []string `json:"sixes_channels" validate:"omitempty,dive,required,numeric"`
	EightsChannels []string `json:"eights_channels" validate:"omitempty,dive,required,numeric"`
}

func (h *Handler) UpsertTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "opsapi.Handler.UpsertTeam")
	defer span.End()

	teamID := strings.TrimSpace(r.PathValue("id"))
	var req upsertTeamRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item := team.Team{
		ID:             teamID,
		Name:           strings.TrimSpace(req.Name),
		SixesChannels:  req.SixesChannels,
		EightsChannels: req.EightsChannels,
	}
	if err := item.Validate(); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.teams.Upsert(ctx, item); err != nil {
		h.logger.ErrorContext(ctx, "upsert team failed", "team_id", teamID, "error", err)
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrRegistryFailure, err))
		return
	}
	h.logger.InfoContext(ctx, "team registered", "team_id", teamID, "venues", len(item.SixesChannels)+len(item.EightsChannels))

	writeSuccess(w, http.StatusOK, teamToDTO(item))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type slotDTO struct {
	Position string `json:"position"`
	Player   string `json:"player,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Ready    bool   `json:"ready"`
}

type lineupDTO struct {
	Name  string    `json:"name"`
	Slots []slotDTO `json:"slots"`
}

type rosterDTO struct {
	Venue       string      `json:"venue"`
	Name        string      `json:"name"`
	Format      string      `json:"format"`
	Role        string      `json:"role"`
	Teams       []lineupDTO `json:"teams"`
	Substitutes []string    `json:"substitutes"`
	LinkedVenue string      `json:"linked_venue,omitempty"`
	Challenger  string      `json:"challenger,omitempty"`
	ChallengeID string      `json:"challenge_id,omitempty"`
	Ready       bool        `json:"ready"`
	Verdict     string      `json:"verdict"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func rosterToDTO(view usecase.LineupView) rosterDTO {
	state := view.State
	out := rosterDTO{
		Venue:       state.Venue.Key.String(),
		Name:        state.Venue.Name,
		Format:      state.Format().Label(),
		Role:        string(state.Venue.Role),
		Teams:       make([]lineupDTO, 0, len(state.Teams)),
		Substitutes: make([]string, 0, len(state.Substitutes)),
		Ready:       view.Ready,
		Verdict:     view.Verdict,
		UpdatedAt:   state.UpdatedAt,
	}
	if state.Linked() {
		out.LinkedVenue = state.LinkedVenue.String()
	}
	if state.ChallengeFlags != nil {
		out.Challenger = state.ChallengeFlags.ChallengerName
	}
	if view.Challenge != nil {
		out.ChallengeID = view.Challenge.ID
	}
	for _, lineup := range state.Teams {
		item := lineupDTO{Name: lineup.Name}
		for _, pos := range state.Format().Positions() {
			slot := slotDTO{Position: string(pos)}
			if signed, ok := lineup.Player(pos); ok {
				slot.Player = signed.Player.String()
				slot.PlayerID = signed.Player.ID
				slot.Ready = state.IsReady(signed.Player)
			}
			item.Slots = append(item.Slots, slot)
		}
		out.Teams = append(out.Teams, item)
	}
	for _, sub := range state.Substitutes {
		out.Substitutes = append(out.Substitutes, playerLabel(sub))
	}
	return out
}

func playerLabel(player roster.PlayerRef) string {
	if player.IsIdentified() {
		return player.String() + " (" + player.ID + ")"
	}
	return player.String()
}

type challengeDTO struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Format         string     `json:"format"`
	TargetKind     string     `json:"target_kind"`
	Initiator      string     `json:"initiator"`
	InitiatorVenue string     `json:"initiator_venue"`
	Target         string     `json:"target,omitempty"`
	Opponent       string     `json:"opponent,omitempty"`
	OpponentVenue  string     `json:"opponent_venue,omitempty"`
	OpenOffers     int        `json:"open_offers"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
}

func challengeToDTO(item challenge.Challenge) challengeDTO {
	out := challengeDTO{
		ID:             item.ID,
		Status:         string(item.Status),
		Format:         item.Format.Label(),
		TargetKind:     string(item.TargetKind),
		Initiator:      item.InitiatorTeamName,
		InitiatorVenue: item.InitiatorVenue.String(),
		Target:         item.TargetName,
		Opponent:       item.OpponentTeamName,
		OpenOffers:     len(item.BroadcastRefs),
		CreatedAt:      item.CreatedAt,
		AcceptedAt:     item.AcceptedAt,
	}
	if !item.OpponentVenue.IsZero() {
		out.OpponentVenue = item.OpponentVenue.String()
	}
	return out
}

type teamDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SixesChannels  []string `json:"sixes_channels"`
	EightsChannels []string `json:"eights_channels"`
}

func teamToDTO(item team.Team) teamDTO {
	return teamDTO{
		ID:             item.ID,
		Name:           item.Name,
		SixesChannels:  append([]string{}, item.SixesChannels...),
		EightsChannels: append([]string{}, item.EightsChannels...),
	}
}
