package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clanwars/battles/brackets"
	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
)

// ClanView — ответ агрегатора: клан и его провинции с расписанием раундов.
type ClanView struct {
	Clan      ClanPayload             `json:"clan"`
	Provinces []*brackets.BattleTimes `json:"provinces"`
}

type ClanPayload struct {
	ClanID int    `json:"clan_id"`
	Tag    string `json:"tag"`
}

type ScheduleService interface {
	// GetActiveSchedules возвращает незавершённые расписания клана начиная с
	// даты: где он владелец, претендент (до старта турнира) или участник боя
	// текущего раунда. Выбывшие из сетки кланы отфильтровываются здесь.
	GetActiveSchedules(ctx context.Context, clan *models.Clan, date time.Time) ([]*models.Schedule, error)
	// GetClanView собирает расписания в ответ API: раунды одной провинции за
	// разные даты склеиваются и сортируются по времени.
	GetClanView(ctx context.Context, clan *models.Clan, date time.Time) (*ClanView, error)
}

type scheduleService struct {
	scheduleRepo repositories.ScheduleRepository
	provinceRepo repositories.ProvinceRepository
	matchRepo    repositories.MatchRepository
	clanRepo     repositories.ClanRepository
	logger       *slog.Logger
}

func NewScheduleService(
	scheduleRepo repositories.ScheduleRepository,
	provinceRepo repositories.ProvinceRepository,
	matchRepo repositories.MatchRepository,
	clanRepo repositories.ClanRepository,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		provinceRepo: provinceRepo,
		matchRepo:    matchRepo,
		clanRepo:     clanRepo,
		logger:       logger,
	}
}

func (s *scheduleService) GetActiveSchedules(ctx context.Context, clan *models.Clan, date time.Time) ([]*models.Schedule, error) {
	related, err := s.scheduleRepo.ListRelatedByClanAndDate(ctx, clan.ID, date)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Schedule, 0, len(related))
	for _, schedule := range related {
		if err := s.loadRelations(ctx, schedule); err != nil {
			return nil, err
		}
		if clanStillCompetes(schedule, clan.ID) {
			active = append(active, schedule)
		}
	}
	return active, nil
}

// clanStillCompetes: владелец участвует всегда; до старта достаточно быть
// претендентом, после старта — иметь бой в текущем раунде. Пока пары раунда
// ещё не записаны фидом, претендент считается участником.
func clanStillCompetes(schedule *models.Schedule, clanID int) bool {
	if schedule.OwnerID != nil && *schedule.OwnerID == clanID {
		return true
	}
	isPretender := false
	for _, pretender := range schedule.Pretenders {
		if pretender.ID == clanID {
			isPretender = true
			break
		}
	}
	if !schedule.HasStarted() {
		return isPretender
	}
	roundMatches := 0
	for _, match := range schedule.Matches {
		if match.Round != *schedule.RoundNumber {
			continue
		}
		roundMatches++
		if match.Involves(clanID) {
			return true
		}
	}
	return roundMatches == 0 && isPretender
}

func (s *scheduleService) GetClanView(ctx context.Context, clan *models.Clan, date time.Time) (*ClanView, error) {
	schedules, err := s.GetActiveSchedules(ctx, clan, date)
	if err != nil {
		return nil, err
	}

	// Одна провинция может иметь расписания на несколько дат (бой сегодня,
	// высадка завтра) — сливаем раунды под одним province_id.
	byProvince := make(map[string]*brackets.BattleTimes)
	order := make([]string, 0, len(schedules))

	for _, schedule := range schedules {
		times, err := brackets.ComputeBattleTimes(schedule, clan)
		if err != nil {
			// Битое расписание не должно ронять весь ответ.
			s.logger.Warn("skipping schedule with incomplete data",
				"schedule_id", schedule.ID, "error", err)
			continue
		}
		if existing, ok := byProvince[times.ProvinceID]; ok {
			existing.Rounds = append(existing.Rounds, times.Rounds...)
			continue
		}
		byProvince[times.ProvinceID] = times
		order = append(order, times.ProvinceID)
	}

	provinces := make([]*brackets.BattleTimes, 0, len(order))
	for _, provinceID := range order {
		times := byProvince[provinceID]
		sort.SliceStable(times.Rounds, func(i, j int) bool {
			return times.Rounds[i].Time.Before(times.Rounds[j].Time)
		})
		provinces = append(provinces, times)
	}

	return &ClanView{
		Clan:      ClanPayload{ClanID: clan.ID, Tag: clan.Tag},
		Provinces: provinces,
	}, nil
}

// loadRelations догружает провинцию, владельца, претендентов и бои.
func (s *scheduleService) loadRelations(ctx context.Context, schedule *models.Schedule) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		province, err := s.provinceRepo.GetByID(gctx, schedule.ProvinceRefID)
		if err != nil {
			return err
		}
		schedule.Province = province
		return nil
	})
	g.Go(func() error {
		pretenders, err := s.scheduleRepo.ListPretenders(gctx, schedule.ID)
		if err != nil {
			return err
		}
		schedule.Pretenders = pretenders
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListBySchedule(gctx, schedule.ID)
		if err != nil {
			return err
		}
		schedule.Matches = matches
		return nil
	})
	if schedule.OwnerID != nil {
		ownerID := *schedule.OwnerID
		g.Go(func() error {
			owner, err := s.clanRepo.GetByID(gctx, ownerID)
			if err != nil {
				if errors.Is(err, repositories.ErrClanNotFound) {
					schedule.Owner = &models.Clan{ID: ownerID}
					return nil
				}
				return err
			}
			schedule.Owner = owner
			return nil
		})
	}

	return g.Wait()
}
