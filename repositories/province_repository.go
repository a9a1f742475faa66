package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clanwars/battles/models"
)

var ErrProvinceNotFound = errors.New("province not found")

type ProvinceRepository interface {
	GetByID(ctx context.Context, id int) (*models.Province, error)
	GetByProvinceID(ctx context.Context, frontID, provinceID string) (*models.Province, error)
	// GetOrCreate ищет провинцию по (front_id, province_id), при отсутствии
	// создаёт её; справочные поля обновляются данными из фида.
	GetOrCreate(ctx context.Context, exec SQLExecutor, province *models.Province) error
}

type postgresProvinceRepository struct {
	db *sql.DB
}

func NewPostgresProvinceRepository(db *sql.DB) ProvinceRepository {
	return &postgresProvinceRepository{db: db}
}

func (r *postgresProvinceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const provinceColumns = `id, front_id, front_name, province_id, province_name, arena_id, arena_name, server, prime_time`

func scanProvince(row *sql.Row) (*models.Province, error) {
	p := &models.Province{}
	err := row.Scan(
		&p.ID, &p.FrontID, &p.FrontName, &p.ProvinceID, &p.ProvinceName,
		&p.ArenaID, &p.ArenaName, &p.Server, &p.PrimeTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProvinceNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresProvinceRepository) GetByID(ctx context.Context, id int) (*models.Province, error) {
	query := `SELECT ` + provinceColumns + ` FROM provinces WHERE id = $1`
	return scanProvince(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresProvinceRepository) GetByProvinceID(ctx context.Context, frontID, provinceID string) (*models.Province, error) {
	query := `SELECT ` + provinceColumns + ` FROM provinces WHERE front_id = $1 AND province_id = $2`
	return scanProvince(r.db.QueryRowContext(ctx, query, frontID, provinceID))
}

func (r *postgresProvinceRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, province *models.Province) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO provinces
			(front_id, front_name, province_id, province_name, arena_id, arena_name, server, prime_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (front_id, province_id) DO UPDATE SET
			front_name    = EXCLUDED.front_name,
			province_name = EXCLUDED.province_name,
			arena_id      = EXCLUDED.arena_id,
			arena_name    = EXCLUDED.arena_name,
			server        = EXCLUDED.server,
			prime_time    = EXCLUDED.prime_time
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		province.FrontID, province.FrontName, province.ProvinceID, province.ProvinceName,
		province.ArenaID, province.ArenaName, province.Server, province.PrimeTime,
	).Scan(&province.ID)
}
