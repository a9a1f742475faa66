package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBattleDate(t *testing.T) {
	// Девять утра UTC — граница игровых суток.
	assert.Equal(t,
		time.Date(2017, 12, 13, 0, 0, 0, 0, time.UTC),
		BattleDate(time.Date(2017, 12, 13, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t,
		time.Date(2017, 12, 12, 0, 0, 0, 0, time.UTC),
		BattleDate(time.Date(2017, 12, 13, 8, 59, 0, 0, time.UTC)))
	assert.Equal(t,
		time.Date(2017, 12, 13, 0, 0, 0, 0, time.UTC),
		BattleDate(time.Date(2017, 12, 13, 23, 30, 0, 0, time.UTC)))
}
