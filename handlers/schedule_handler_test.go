package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clanwars/battles/brackets"
	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/services"
)

type stubClanService struct {
	clan *models.Clan
	err  error
}

func (s *stubClanService) ResolveByTag(_ context.Context, tag string) (*models.Clan, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.clan != nil {
		return s.clan, nil
	}
	return &models.Clan{ID: 1, Tag: tag}, nil
}

func (s *stubClanService) ResolveByID(_ context.Context, id int, tag string) (*models.Clan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Clan{ID: id, Tag: tag}, nil
}

type stubSyncService struct {
	calls int
	err   error
}

func (s *stubSyncService) SyncClan(_ context.Context, _ int) error {
	s.calls++
	return s.err
}

type stubScheduleService struct {
	view *services.ClanView
}

func (s *stubScheduleService) GetActiveSchedules(_ context.Context, _ *models.Clan, _ time.Time) ([]*models.Schedule, error) {
	return nil, nil
}

func (s *stubScheduleService) GetClanView(_ context.Context, clan *models.Clan, _ time.Time) (*services.ClanView, error) {
	if s.view != nil {
		return s.view, nil
	}
	return &services.ClanView{
		Clan:      services.ClanPayload{ClanID: clan.ID, Tag: clan.Tag},
		Provinces: []*brackets.BattleTimes{},
	}, nil
}

func newTestRouter(clanService services.ClanService, syncService services.SyncService) *chi.Mux {
	hub := brackets.NewHub()
	go hub.Run()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewScheduleHandler(clanService, syncService, &stubScheduleService{}, hub, logger)

	router := chi.NewRouter()
	router.Get("/update/{clanID:[0-9]+}-{clanTag}", handler.GetByIDAndTag)
	router.Get("/update/{clanTag}", handler.GetByTag)
	return router
}

func TestGetByTagReturnsSchedule(t *testing.T) {
	sync := &stubSyncService{}
	router := newTestRouter(&stubClanService{clan: &models.Clan{ID: 1, Tag: "AAA"}}, sync)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update/AAA", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sync.calls)

	var view services.ClanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, services.ClanPayload{ClanID: 1, Tag: "AAA"}, view.Clan)
	assert.NotNil(t, view.Provinces)
}

func TestGetByTagUnknownClan(t *testing.T) {
	router := newTestRouter(&stubClanService{err: services.ErrClanNotFound}, &stubSyncService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update/NOPE", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetByIDAndTag(t *testing.T) {
	sync := &stubSyncService{}
	router := newTestRouter(&stubClanService{}, sync)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update/208+ИС-7", nil))
	// Нечисловой префикс не должен совпасть с маршрутом id-tag.
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update/1234-TAG", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view services.ClanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1234, view.Clan.ClanID)
	assert.Equal(t, "TAG", view.Clan.Tag)
	assert.Equal(t, 2, sync.calls)
}

func TestSyncFailureStillServesStoredSchedule(t *testing.T) {
	sync := &stubSyncService{err: assert.AnError}
	router := newTestRouter(&stubClanService{clan: &models.Clan{ID: 1, Tag: "AAA"}}, sync)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/update/AAA", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
