package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clanwars/battles/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	// Upsert обновляет start_at по ключу (schedule, clan_a, clan_b, round)
	// или создаёт запись. clan_b может быть NULL (bye), поэтому сравнение
	// делается через IS NOT DISTINCT FROM, а не через ON CONFLICT.
	Upsert(ctx context.Context, exec SQLExecutor, match *models.Match) error
	ListBySchedule(ctx context.Context, scheduleID int) ([]models.Match, error)
	DeleteRound(ctx context.Context, exec SQLExecutor, scheduleID, round int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Upsert(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)

	updateQuery := `
		UPDATE province_battles
		SET start_at = $5
		WHERE schedule_id = $1
		  AND clan_a_id = $2
		  AND clan_b_id IS NOT DISTINCT FROM $3
		  AND round = $4
		RETURNING id`

	err := executor.QueryRowContext(ctx, updateQuery,
		match.ScheduleID, match.ClanAID, match.ClanBID, match.Round, match.StartAt,
	).Scan(&match.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update match: %w", err)
	}

	insertQuery := `
		INSERT INTO province_battles (schedule_id, clan_a_id, clan_b_id, round, start_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = executor.QueryRowContext(ctx, insertQuery,
		match.ScheduleID, match.ClanAID, match.ClanBID, match.Round, match.StartAt,
	).Scan(&match.ID)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) ListBySchedule(ctx context.Context, scheduleID int) ([]models.Match, error) {
	query := `
		SELECT b.id, b.schedule_id, b.clan_a_id, b.clan_b_id, b.round, b.start_at,
		       ca.tag, cb.tag
		FROM province_battles b
		JOIN clans ca ON ca.id = b.clan_a_id
		LEFT JOIN clans cb ON cb.id = b.clan_b_id
		WHERE b.schedule_id = $1
		ORDER BY b.round, b.id`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		var tagA string
		var tagB sql.NullString
		if scanErr := rows.Scan(
			&m.ID, &m.ScheduleID, &m.ClanAID, &m.ClanBID, &m.Round, &m.StartAt,
			&tagA, &tagB,
		); scanErr != nil {
			return nil, scanErr
		}
		m.ClanA = &models.Clan{ID: m.ClanAID, Tag: tagA}
		if m.ClanBID != nil {
			m.ClanB = &models.Clan{ID: *m.ClanBID, Tag: tagB.String}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteRound убирает все бои раунда перед его перегенерацией (используется
// утилитой наполнения тестовыми данными).
func (r *postgresMatchRepository) DeleteRound(ctx context.Context, exec SQLExecutor, scheduleID, round int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM province_battles WHERE schedule_id = $1 AND round = $2`

	if _, err := executor.ExecContext(ctx, query, scheduleID, round); err != nil {
		return fmt.Errorf("failed to delete round %d matches for schedule %d: %w", round, scheduleID, err)
	}
	return nil
}
