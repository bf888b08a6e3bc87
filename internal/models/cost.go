package models

import "sort"

// MonthlyCost is the total spent on maintenance in one calendar month.
type MonthlyCost struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// MonthlyCosts groups record costs by month, oldest month first.
func MonthlyCosts(records []MaintenanceRecord) []MonthlyCost {
	byMonth := make(map[string]*MonthlyCost)
	for _, r := range records {
		month := r.Date.Format("2006-01")
		mc, ok := byMonth[month]
		if !ok {
			mc = &MonthlyCost{Month: month}
			byMonth[month] = mc
		}
		mc.Total += r.Cost
		mc.Count++
	}

	out := make([]MonthlyCost, 0, len(byMonth))
	for _, mc := range byMonth {
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// TotalCost sums the cost of all records.
func TotalCost(records []MaintenanceRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Cost
	}
	return total
}
