package store

import (
	"context"
	"fmt"

	"github.com/ukydev/vehicle-logbook/internal/models"
)

// DemoPlate is the license plate of the demo vehicle.
const DemoPlate = "12-AA-34"

var demoRecords = []models.MaintenanceRequest{
	{Description: "Troca de óleo e filtro", Date: "2025-10-01", Mileage: 155000, Cost: 80.50},
	{Description: "Revisão de 15.000km", Date: "2025-05-20", Mileage: 153000, Cost: 120.00},
	{Description: "Troca dos 4 Pneus", Date: "2024-11-15", Mileage: 152000, Cost: 320.00},
	{Description: "Inspeção Periódica Anual", Date: "2025-01-10", Mileage: 145000, Cost: 31.50},
}

// SeedDemo registers the demo vehicle with its history and a current
// reading of 169000 km.
func SeedDemo(ctx context.Context, r *Registry) error {
	if _, err := r.Create(ctx, DemoPlate, 150000); err != nil {
		return fmt.Errorf("seed demo vehicle: %w", err)
	}
	for _, req := range demoRecords {
		record, err := req.Record()
		if err != nil {
			return fmt.Errorf("seed demo record %q: %w", req.Description, err)
		}
		if _, err := r.AddRecord(ctx, DemoPlate, record); err != nil {
			return err
		}
	}
	_, err := r.UpdateMileage(ctx, DemoPlate, 169000)
	return err
}
