package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clanwars/battles/models"
)

var ErrClanNotFound = errors.New("clan not found")

type ClanRepository interface {
	GetByID(ctx context.Context, id int) (*models.Clan, error)
	GetByTag(ctx context.Context, tag string) (*models.Clan, error)
	Upsert(ctx context.Context, exec SQLExecutor, clan *models.Clan) error
	UpdateTag(ctx context.Context, exec SQLExecutor, id int, tag string) error
	List(ctx context.Context) ([]models.Clan, error)
}

type postgresClanRepository struct {
	db *sql.DB
}

func NewPostgresClanRepository(db *sql.DB) ClanRepository {
	return &postgresClanRepository{db: db}
}

func (r *postgresClanRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresClanRepository) GetByID(ctx context.Context, id int) (*models.Clan, error) {
	query := `SELECT id, tag FROM clans WHERE id = $1`

	clan := &models.Clan{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&clan.ID, &clan.Tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClanNotFound
		}
		return nil, err
	}
	return clan, nil
}

func (r *postgresClanRepository) GetByTag(ctx context.Context, tag string) (*models.Clan, error) {
	query := `SELECT id, tag FROM clans WHERE tag = $1`

	clan := &models.Clan{}
	err := r.db.QueryRowContext(ctx, query, tag).Scan(&clan.ID, &clan.Tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClanNotFound
		}
		return nil, err
	}
	return clan, nil
}

// Upsert создаёт клан по id из фида; пустой тег не затирает уже известный.
func (r *postgresClanRepository) Upsert(ctx context.Context, exec SQLExecutor, clan *models.Clan) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO clans (id, tag)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET tag = COALESCE(NULLIF(EXCLUDED.tag, ''), clans.tag)
		RETURNING tag`

	return executor.QueryRowContext(ctx, query, clan.ID, clan.Tag).Scan(&clan.Tag)
}

func (r *postgresClanRepository) UpdateTag(ctx context.Context, exec SQLExecutor, id int, tag string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE clans SET tag = $2 WHERE id = $1`

	result, err := executor.ExecContext(ctx, query, id, tag)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClanNotFound)
}

func (r *postgresClanRepository) List(ctx context.Context) ([]models.Clan, error) {
	query := `SELECT id, tag FROM clans ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
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
