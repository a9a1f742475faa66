package models

import "time"

// Match — одна пара кланов внутри расписания. ClanBID == nil означает bye:
// ClanA проходит в следующий раунд без боя.
// Уникальность: (schedule, clan_a, clan_b, round).
type Match struct {
	ID         int       `json:"id" db:"id"`
	ScheduleID int       `json:"schedule_id" db:"schedule_id"`
	ClanAID    int       `json:"clan_a_id" db:"clan_a_id"`
	ClanBID    *int      `json:"clan_b_id,omitempty" db:"clan_b_id"`
	Round      int       `json:"round" db:"round"`
	StartAt    time.Time `json:"start_at" db:"start_at"`

	ClanA *Clan `json:"clan_a,omitempty" db:"-"`
	ClanB *Clan `json:"clan_b,omitempty" db:"-"`
}

// Involves reports whether the clan fights in this match.
func (m *Match) Involves(clanID int) bool {
	if m.ClanAID == clanID {
		return true
	}
	return m.ClanBID != nil && *m.ClanBID == clanID
}
