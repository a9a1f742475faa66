package models

import "time"

// ScheduleStatus соответствует статусу провинции в ответе API.
type ScheduleStatus string

const (
	ScheduleNotStarted ScheduleStatus = "NOT_STARTED"
	ScheduleStarted    ScheduleStatus = "STARTED"
	ScheduleFinished   ScheduleStatus = "FINISHED"
)

// Schedule — турнир за провинцию на конкретную игровую дату.
// RoundNumber равен nil, пока бои не начались; после старта это номер
// текущего раунда атакующих (1-based, без учёта раунда владельца).
type Schedule struct {
	ID             int             `json:"id" db:"id"`
	ProvinceRefID  int             `json:"-" db:"province_ref_id"`
	Date           time.Time       `json:"date" db:"date"`
	BattlesStartAt time.Time       `json:"battles_start_at" db:"battles_start_at"`
	RoundNumber    *int            `json:"round_number,omitempty" db:"round_number"`
	Status         *ScheduleStatus `json:"status,omitempty" db:"status"`
	IsLanding      bool            `json:"is_landing" db:"is_landing"`
	OwnerID        *int            `json:"owner_id,omitempty" db:"owner_clan_id"`

	// Связанные сущности, загружаются репозиторием отдельно.
	Province   *Province `json:"province,omitempty" db:"-"`
	Owner      *Clan     `json:"owner,omitempty" db:"-"`
	Pretenders []Clan    `json:"pretenders,omitempty" db:"-"`
	Matches    []Match   `json:"matches,omitempty" db:"-"`
}

// HasStarted reports whether the attacker bracket is live.
func (s *Schedule) HasStarted() bool {
	return s.RoundNumber != nil
}
