package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clanwars/battles/models"
	"github.com/lib/pq"
)

var (
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrScheduleInvalidProvince = errors.New("invalid province reference")
	ErrScheduleInvalidOwner    = errors.New("invalid owner clan reference")
)

type ScheduleRepository interface {
	// Upsert перезаписывает расписание по ключу (province_ref_id, date) целиком:
	// фид каждого цикла синхронизации авторитетен, дифф не считается.
	Upsert(ctx context.Context, exec SQLExecutor, schedule *models.Schedule) error
	SetPretenders(ctx context.Context, exec SQLExecutor, scheduleID int, clanIDs []int) error
	ListPretenders(ctx context.Context, scheduleID int) ([]models.Clan, error)
	// ListRelatedByClanAndDate возвращает расписания с date >= заданной и
	// статусом, отличным от FINISHED, где клан — владелец, претендент или
	// участник любого записанного боя. Фильтр «выбыл из текущего раунда»
	// применяется сервисным слоем.
	ListRelatedByClanAndDate(ctx context.Context, clanID int, date time.Time) ([]*models.Schedule, error)
	ListByDate(ctx context.Context, date time.Time) ([]*models.Schedule, error)
	ListFinishedByDate(ctx context.Context, date time.Time) ([]*models.Schedule, error)
	GetByProvinceAndDate(ctx context.Context, provinceRefID int, date time.Time) (*models.Schedule, error)
}

type postgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) ScheduleRepository {
	return &postgresScheduleRepository{db: db}
}

func (r *postgresScheduleRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const scheduleColumns = `id, province_ref_id, date, battles_start_at, round_number, status, is_landing, owner_clan_id`

func scanSchedule(scanner interface{ Scan(...interface{}) error }) (*models.Schedule, error) {
	s := &models.Schedule{}
	var status sql.NullString
	err := scanner.Scan(
		&s.ID, &s.ProvinceRefID, &s.Date, &s.BattlesStartAt,
		&s.RoundNumber, &status, &s.IsLanding, &s.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	if status.Valid {
		st := models.ScheduleStatus(status.String)
		s.Status = &st
	}
	return s, nil
}

func (r *postgresScheduleRepository) Upsert(ctx context.Context, exec SQLExecutor, schedule *models.Schedule) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO schedules
			(province_ref_id, date, battles_start_at, round_number, status, is_landing, owner_clan_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (province_ref_id, date) DO UPDATE SET
			battles_start_at = EXCLUDED.battles_start_at,
			round_number     = EXCLUDED.round_number,
			status           = EXCLUDED.status,
			is_landing       = EXCLUDED.is_landing,
			owner_clan_id    = EXCLUDED.owner_clan_id
		RETURNING id`

	var status *string
	if schedule.Status != nil {
		st := string(*schedule.Status)
		status = &st
	}

	err := executor.QueryRowContext(ctx, query,
		schedule.ProvinceRefID, schedule.Date, schedule.BattlesStartAt,
		schedule.RoundNumber, status, schedule.IsLanding, schedule.OwnerID,
	).Scan(&schedule.ID)

	return r.handleScheduleError(err)
}

func (r *postgresScheduleRepository) SetPretenders(ctx context.Context, exec SQLExecutor, scheduleID int, clanIDs []int) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM schedule_pretenders WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("failed to clear pretenders for schedule %d: %w", scheduleID, err)
	}
	for _, clanID := range clanIDs {
		if _, err := executor.ExecContext(ctx,
			`INSERT INTO schedule_pretenders (schedule_id, clan_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, scheduleID, clanID); err != nil {
			return fmt.Errorf("failed to add pretender %d to schedule %d: %w", clanID, scheduleID, err)
		}
	}
	return nil
}

func (r *postgresScheduleRepository) ListPretenders(ctx context.Context, scheduleID int) ([]models.Clan, error) {
	query := `
		SELECT c.id, c.tag
		FROM schedule_pretenders sp
		JOIN clans c ON c.id = sp.clan_id
		WHERE sp.schedule_id = $1
		ORDER BY c.id`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clans := make([]models.Clan, 0)
	for rows.Next() {
		var c models.Clan
		if scanErr := rows.Scan(&c.ID, &c.Tag); scanErr != nil {
			return nil, scanErr
		}
		clans = append(clans, c)
	}
	return clans, rows.Err()
}

func (r *postgresScheduleRepository) ListRelatedByClanAndDate(ctx context.Context, clanID int, date time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules s
		WHERE s.date >= $2
		  AND (s.status IS NULL OR s.status <> 'FINISHED')
		  AND (
			s.owner_clan_id = $1
			OR EXISTS (
				SELECT 1 FROM schedule_pretenders sp
				WHERE sp.schedule_id = s.id AND sp.clan_id = $1)
			OR EXISTS (
				SELECT 1 FROM province_battles b
				WHERE b.schedule_id = s.id AND (b.clan_a_id = $1 OR b.clan_b_id = $1))
		  )
		ORDER BY s.date, s.id`

	return r.listSchedules(ctx, query, clanID, date)
}

func (r *postgresScheduleRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules s
		WHERE s.date = $1
		ORDER BY s.id`

	return r.listSchedules(ctx, query, date)
}

func (r *postgresScheduleRepository) ListFinishedByDate(ctx context.Context, date time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules s
		WHERE s.date = $1 AND s.status = 'FINISHED'
		ORDER BY s.id`

	return r.listSchedules(ctx, query, date)
}

func (r *postgresScheduleRepository) GetByProvinceAndDate(ctx context.Context, provinceRefID int, date time.Time) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE province_ref_id = $1 AND date = $2`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, provinceRefID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresScheduleRepository) listSchedules(ctx context.Context, query string, args ...interface{}) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*models.Schedule, 0)
	for rows.Next() {
		s, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *postgresScheduleRepository) handleScheduleError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "schedules_province_ref_id_fkey":
			return ErrScheduleInvalidProvince
		case "schedules_owner_clan_id_fkey":
			return ErrScheduleInvalidOwner
		}
	}
	return err
}
