package services

import "time"

// Игровые сутки глобальной карты начинаются в 09:00 UTC (московский прайм):
// бои, стартующие до девяти утра, относятся к предыдущей игровой дате.
const gameDayRollover = 9 * time.Hour

// Today возвращает текущую игровую дату.
func Today() time.Time {
	return BattleDate(time.Now().UTC())
}

// BattleDate возвращает игровую дату для момента начала боя.
func BattleDate(battleStartAt time.Time) time.Time {
	d := battleStartAt.UTC().Add(-gameDayRollover)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
