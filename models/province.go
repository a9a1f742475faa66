package models

// Province представляет провинцию глобальной карты — долгоживущий справочник.
// PrimeTime хранится строкой "HH:MM", как отдаёт её API.
type Province struct {
	ID           int    `json:"id" db:"id"`
	FrontID      string `json:"front_id" db:"front_id"`
	FrontName    string `json:"front_name,omitempty" db:"front_name"`
	ProvinceID   string `json:"province_id" db:"province_id"`
	ProvinceName string `json:"province_name" db:"province_name"`
	ArenaID      string `json:"arena_id" db:"arena_id"`
	ArenaName    string `json:"arena_name" db:"arena_name"`
	Server       string `json:"server" db:"server"`
	PrimeTime    string `json:"prime_time" db:"prime_time"`
}
