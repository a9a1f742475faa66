package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clanwars/battles/brackets"
	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/services"
)

type ScheduleHandler struct {
	clanService     services.ClanService
	syncService     services.SyncService
	scheduleService services.ScheduleService
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewScheduleHandler(
	clanService services.ClanService,
	syncService services.SyncService,
	scheduleService services.ScheduleService,
	hub *brackets.Hub,
	logger *slog.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		clanService:     clanService,
		syncService:     syncService,
		scheduleService: scheduleService,
		hub:             hub,
		logger:          logger,
	}
}

// GetByTag — GET /update/{clanTag}: клан ищется по тегу (в базе или через
// API Wargaming), расписание синхронизируется и возвращается.
func (h *ScheduleHandler) GetByTag(w http.ResponseWriter, r *http.Request) {
	clan, err := h.clanService.ResolveByTag(r.Context(), chi.URLParam(r, "clanTag"))
	if err != nil {
		if errors.Is(err, services.ErrClanNotFound) {
			notFoundResponse(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}
	h.respondWithSchedule(w, r, clan)
}

// GetByIDAndTag — GET /update/{clanID}-{clanTag}: пара id+tag из URL
// позволяет обойтись без поиска клана через API.
func (h *ScheduleHandler) GetByIDAndTag(w http.ResponseWriter, r *http.Request) {
	clanID, err := strconv.Atoi(chi.URLParam(r, "clanID"))
	if err != nil || clanID <= 0 {
		badRequestResponse(w, r, fmt.Errorf("invalid clan id %q", chi.URLParam(r, "clanID")))
		return
	}

	clan, err := h.clanService.ResolveByID(r.Context(), clanID, chi.URLParam(r, "clanTag"))
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	h.respondWithSchedule(w, r, clan)
}

func (h *ScheduleHandler) respondWithSchedule(w http.ResponseWriter, r *http.Request, clan *models.Clan) {
	// Недоступность Wargaming не повод отдавать 5xx: в базе уже может быть
	// расписание с прошлой синхронизации.
	if err := h.syncService.SyncClan(r.Context(), clan.ID); err != nil {
		h.logger.Warn("sync failed, serving stored schedules",
			"clan_id", clan.ID, "error", err)
	}

	view, err := h.scheduleService.GetClanView(r.Context(), clan, services.Today())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	h.hub.BroadcastToRoom(clanRoomID(clan.Tag), brackets.ScheduleMessage{
		Type:    "SCHEDULE_UPDATED",
		Payload: view,
		ClanTag: clan.Tag,
	})

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
