package wgapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Time парсит метки времени фида: публичный API отдаёт их без зоны
// ("2017-12-13T18:15:00"), считаем такие UTC.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported time format %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// BattleSide — сторона боя в active_battles; clan_id == nil означает,
// что противника нет (bye).
type BattleSide struct {
	ClanID *int `json:"clan_id"`
}

type ActiveBattle struct {
	ClanA   BattleSide `json:"clan_a"`
	ClanB   BattleSide `json:"clan_b"`
	Round   int        `json:"round"`
	StartAt Time       `json:"start_at"`
}

// ProvinceData — данные одной провинции из globalmap/provinces после
// нормализации (Pretenders = attackers + competitors).
type ProvinceData struct {
	FrontID        string         `json:"front_id"`
	FrontName      string         `json:"front_name"`
	ProvinceID     string         `json:"province_id"`
	ProvinceName   string         `json:"province_name"`
	ArenaID        string         `json:"arena_id"`
	ArenaName      string         `json:"arena_name"`
	Server         string         `json:"server"`
	PrimeTime      string         `json:"prime_time"`
	BattlesStartAt Time           `json:"battles_start_at"`
	RoundNumber    *int           `json:"round_number"`
	Status         string         `json:"status"` // "", NOT_STARTED, STARTED, FINISHED
	OwnerClanID    *int           `json:"owner_clan_id"`
	LandingType    *string        `json:"landing_type"`
	Attackers      []int          `json:"attackers"`
	Competitors    []int          `json:"competitors"`
	Pretenders     []int          `json:"pretenders"`
	ActiveBattles  []ActiveBattle `json:"active_battles"`
}

func (p *ProvinceData) IsLanding() bool {
	return p.LandingType != nil && *p.LandingType != ""
}

// ProvinceStub идентифицирует провинцию в ответах clanprovinces и
// clan/{id}/battles.
type ProvinceStub struct {
	FrontID    string `json:"front_id"`
	ProvinceID string `json:"province_id"`
}

// ClanBattlesData — ответ неофициального game_api: текущие и
// запланированные бои клана.
type ClanBattlesData struct {
	Battles        []ProvinceStub `json:"battles"`
	PlannedBattles []ProvinceStub `json:"planned_battles"`
}

type ClanRecord struct {
	ClanID int    `json:"clan_id"`
	Tag    string `json:"tag"`
}

// TournamentInfo — ответ game_api/tournament_info; единственный источник
// пар, когда публичный API не отдаёт претендентов.
type TournamentInfo struct {
	RoundNumber int                `json:"round_number"`
	Battles     []TournamentBattle `json:"battles"`
}

type TournamentCompetitor struct {
	ID int `json:"id"`
}

type TournamentBattle struct {
	FirstCompetitor  *TournamentCompetitor `json:"first_competitor"`
	SecondCompetitor *TournamentCompetitor `json:"second_competitor"`
	IsFake           bool                  `json:"is_fake"`
}
