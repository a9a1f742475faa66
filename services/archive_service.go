package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
	"github.com/clanwars/battles/storage"
)

type ArchiveService interface {
	// ArchiveFinishedSchedules выгружает завершённые расписания игровой даты
	// в объектное хранилище как JSON-снимки. Возвращает число выгруженных.
	ArchiveFinishedSchedules(ctx context.Context, date time.Time) (int, error)
}

type archiveService struct {
	scheduleRepo repositories.ScheduleRepository
	provinceRepo repositories.ProvinceRepository
	matchRepo    repositories.MatchRepository
	clanRepo     repositories.ClanRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewArchiveService(
	scheduleRepo repositories.ScheduleRepository,
	provinceRepo repositories.ProvinceRepository,
	matchRepo repositories.MatchRepository,
	clanRepo repositories.ClanRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ArchiveService {
	return &archiveService{
		scheduleRepo: scheduleRepo,
		provinceRepo: provinceRepo,
		matchRepo:    matchRepo,
		clanRepo:     clanRepo,
		uploader:     uploader,
		logger:       logger,
	}
}

func (s *archiveService) ArchiveFinishedSchedules(ctx context.Context, date time.Time) (int, error) {
	schedules, err := s.scheduleRepo.ListFinishedByDate(ctx, date)
	if err != nil {
		return 0, err
	}

	// Догрузка связей переиспользует агрегатор: снимок должен быть полным.
	loader := &scheduleService{
		scheduleRepo: s.scheduleRepo,
		provinceRepo: s.provinceRepo,
		matchRepo:    s.matchRepo,
		clanRepo:     s.clanRepo,
		logger:       s.logger,
	}

	archived := 0
	for _, schedule := range schedules {
		if err := loader.loadRelations(ctx, schedule); err != nil {
			s.logger.Error("failed to load schedule for archiving",
				"schedule_id", schedule.ID, "error", err)
			continue
		}
		if err := s.uploadSnapshot(ctx, schedule); err != nil {
			s.logger.Error("failed to archive schedule",
				"schedule_id", schedule.ID, "error", err)
			continue
		}
		archived++
	}
	return archived, nil
}

func (s *archiveService) uploadSnapshot(ctx context.Context, schedule *models.Schedule) error {
	body, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("schedules/%s/%s.json",
		schedule.Date.Format("2006-01-02"), schedule.Province.ProvinceID)
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}

	s.logger.Info("schedule archived",
		"schedule_id", schedule.ID, "key", result.Key, "url", result.Location)
	return nil
}
