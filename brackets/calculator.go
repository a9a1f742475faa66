// battles/brackets/calculator.go
package brackets

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/clanwars/battles/models"
)

var (
	ErrInvalidBracketInput = errors.New("invalid bracket input")
	ErrMissingTimingData   = errors.New("schedule is missing timing data")
)

// Интервал между раундами фиксированный, его нет в API.
const roundInterval = 30 * time.Minute

const (
	ModeDefence    = "Defence"
	ModeByLand     = "By Land"
	ModeTournament = "Tournament"
)

// Round — один раунд сетки с точки зрения конкретного клана.
// ClanA/ClanB равны nil, пока пара раунда неизвестна; StartAt — фактическое
// время начала из фида, Time — расчётное (prime time + 30 минут за раунд).
type Round struct {
	Time    time.Time    `json:"time"`
	Title   string       `json:"title"`
	ClanA   *models.Clan `json:"clan_a"`
	ClanB   *models.Clan `json:"clan_b"`
	StartAt *time.Time   `json:"start_at"`
}

// BattleTimes — расписание одной провинции для одного клана.
type BattleTimes struct {
	ProvinceID   string  `json:"province_id"`
	ProvinceName string  `json:"province_name"`
	ArenaName    string  `json:"arena_name"`
	Server       string  `json:"server"`
	PrimeTime    string  `json:"prime_time"`
	Mode         string  `json:"mode"`
	Owner        *int    `json:"owner"`
	Rounds       []Round `json:"rounds"`
}

// RoundTitles возвращает названия раундов турнира за провинцию:
// ноль и более "1/N" (N — степень двойки, число оставшихся участников на
// начало раунда), затем "Final" при двух и более участниках, затем "Owner",
// если провинция кем-то занята. activeClanCount не включает владельца.
//
// Провинция без претендентов не даёт ни одного раунда, даже если у неё есть
// владелец.
func RoundTitles(activeClanCount, currentRound int, hasOwner bool) ([]string, error) {
	if activeClanCount < 0 {
		return nil, fmt.Errorf("%w: negative clan count %d", ErrInvalidBracketInput, activeClanCount)
	}
	if currentRound < 1 {
		return nil, fmt.Errorf("%w: non-positive current round %d", ErrInvalidBracketInput, currentRound)
	}
	if activeClanCount == 0 {
		return []string{}, nil
	}

	totalAttackerRounds := currentRound + int(math.Ceil(math.Log2(float64(activeClanCount)))) - 2

	titles := make([]string, 0, totalAttackerRounds+2)
	for i := 0; i < totalAttackerRounds; i++ {
		titles = append(titles, fmt.Sprintf("1/%d", 1<<uint(totalAttackerRounds-i)))
	}
	if activeClanCount > 1 {
		titles = append(titles, "Final")
	}
	if hasOwner {
		titles = append(titles, "Owner")
	}
	return titles, nil
}

// ComputeBattleTimes materializes the bracket of a schedule for one viewing
// clan: round titles, theoretical times and the pairs already known from
// recorded matches. Pure function over the schedule snapshot.
func ComputeBattleTimes(schedule *models.Schedule, viewer *models.Clan) (*BattleTimes, error) {
	if schedule == nil || viewer == nil {
		return nil, fmt.Errorf("%w: nil schedule or viewer", ErrInvalidBracketInput)
	}

	anchor, err := battlesAnchor(schedule)
	if err != nil {
		return nil, err
	}

	currentRound := 1
	if schedule.RoundNumber != nil {
		if *schedule.RoundNumber < 1 {
			return nil, fmt.Errorf("%w: round_number %d", ErrInvalidBracketInput, *schedule.RoundNumber)
		}
		currentRound = *schedule.RoundNumber
	}

	hasOwner := schedule.OwnerID != nil
	isOwner := hasOwner && viewer.ID == *schedule.OwnerID

	titles, err := RoundTitles(activeClanCount(schedule), currentRound, hasOwner)
	if err != nil {
		return nil, err
	}
	totalRounds := len(titles)

	mode := ModeTournament
	switch {
	case isOwner:
		mode = ModeDefence
	case schedule.IsLanding:
		mode = ModeByLand
	}

	// Владелец играет только последний раунд, претендент видит всю сетку.
	firstRound := 0
	if isOwner && totalRounds > 0 {
		firstRound = totalRounds - 1
	}

	// Записанные бои с участием запрашивающего клана, по номеру раунда.
	recorded := make(map[int]*models.Match)
	for i := range schedule.Matches {
		m := &schedule.Matches[i]
		if m.Involves(viewer.ID) {
			recorded[m.Round] = m
		}
	}

	rounds := make([]Round, 0, totalRounds-firstRound)
	for i := firstRound; i < totalRounds; i++ {
		round := Round{
			Time:  anchor.Add(roundInterval * time.Duration(i)),
			Title: titles[i],
		}
		if match, ok := recorded[i+1]; ok {
			round.ClanA = matchSide(match.ClanA, match.ClanAID)
			round.ClanB = matchSideOpt(match.ClanB, match.ClanBID)
			startAt := match.StartAt
			round.StartAt = &startAt
		} else if i == totalRounds-1 {
			// Слот владельца известен заранее, даже когда финалист ещё нет.
			round.ClanA = ownerSlot(schedule)
		}
		rounds = append(rounds, round)
	}

	result := &BattleTimes{
		Mode:   mode,
		Owner:  schedule.OwnerID,
		Rounds: rounds,
	}
	if schedule.Province != nil {
		result.ProvinceID = schedule.Province.ProvinceID
		result.ProvinceName = schedule.Province.ProvinceName
		result.ArenaName = schedule.Province.ArenaName
		result.Server = schedule.Province.Server
		result.PrimeTime = schedule.Province.PrimeTime
	}
	return result, nil
}

// activeClanCount: до старта сетки авторитетен список претендентов; после
// старта к ним добавляются кланы из записанных боёв текущего раунда, владелец
// не считается. Объединение терпимо к неполному фиду: размер сетки не падает,
// когда часть пар раунда ещё не пришла.
func activeClanCount(schedule *models.Schedule) int {
	if schedule.RoundNumber == nil {
		return len(schedule.Pretenders)
	}

	active := make(map[int]struct{}, len(schedule.Pretenders))
	for _, pretender := range schedule.Pretenders {
		active[pretender.ID] = struct{}{}
	}
	for i := range schedule.Matches {
		m := &schedule.Matches[i]
		if m.Round != *schedule.RoundNumber {
			continue
		}
		active[m.ClanAID] = struct{}{}
		if m.ClanBID != nil {
			active[*m.ClanBID] = struct{}{}
		}
	}
	if schedule.OwnerID != nil {
		delete(active, *schedule.OwnerID)
	}
	return len(active)
}

func battlesAnchor(schedule *models.Schedule) (time.Time, error) {
	if schedule.Date.IsZero() || schedule.BattlesStartAt.IsZero() {
		return time.Time{}, fmt.Errorf("%w: date or battles_start_at not set", ErrMissingTimingData)
	}
	if schedule.Province == nil || schedule.Province.PrimeTime == "" {
		return time.Time{}, fmt.Errorf("%w: prime_time not set", ErrMissingTimingData)
	}
	prime, err := time.Parse("15:04", schedule.Province.PrimeTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad prime_time %q", ErrMissingTimingData, schedule.Province.PrimeTime)
	}
	d := schedule.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), prime.Hour(), prime.Minute(), 0, 0, time.UTC), nil
}

func ownerSlot(schedule *models.Schedule) *models.Clan {
	if schedule.Owner != nil {
		return schedule.Owner
	}
	if schedule.OwnerID != nil {
		return &models.Clan{ID: *schedule.OwnerID}
	}
	return nil
}

func matchSide(clan *models.Clan, clanID int) *models.Clan {
	if clan != nil {
		return clan
	}
	return &models.Clan{ID: clanID}
}

func matchSideOpt(clan *models.Clan, clanID *int) *models.Clan {
	if clan != nil {
		return clan
	}
	if clanID == nil {
		return nil
	}
	return &models.Clan{ID: *clanID}
}
