package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyCosts(t *testing.T) {
	records := []MaintenanceRecord{
		mustRecord(t, "Troca de óleo e filtro", "2025-10-01", 155000, 80.50),
		mustRecord(t, "Escovas", "2025-10-20", 156000, 19.50),
		mustRecord(t, "Revisão de 15.000km", "2025-05-20", 153000, 120.00),
		mustRecord(t, "Troca dos 4 Pneus", "2024-11-15", 152000, 320.00),
	}

	got := MonthlyCosts(records)
	assert.Equal(t, []MonthlyCost{
		{Month: "2024-11", Total: 320, Count: 1},
		{Month: "2025-05", Total: 120, Count: 1},
		{Month: "2025-10", Total: 100, Count: 2},
	}, got)
	assert.Equal(t, 540.0, TotalCost(records))
}

func TestMonthlyCosts_Empty(t *testing.T) {
	assert.Empty(t, MonthlyCosts(nil))
	assert.Zero(t, TotalCost(nil))
}
