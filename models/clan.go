package models

// Clan — клан из глобальной карты. Создаётся по clan_id из фида,
// тег дозаполняется отдельным запросом, когда становится известен.
type Clan struct {
	ID  int    `json:"id" db:"id"`
	Tag string `json:"tag" db:"tag"`
}
