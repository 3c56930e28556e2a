package policy

import (
	"sort"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

const refillAlertMessage = "Likely running low"

// EstimateDaysRemaining assumes one unit lasts cfg.DaysPerUnit days.
func EstimateDaysRemaining(quantity int, daysSince int, cfg Config) int {
	cfg = cfg.Normalize()
	remaining := quantity*cfg.DaysPerUnit - daysSince
	if remaining < 0 {
		return 0
	}
	return remaining
}

func UrgencyFromDays(daysRemaining int) statex.Urgency {
	switch {
	case daysRemaining <= 1:
		return statex.UrgencyHigh
	case daysRemaining <= 3:
		return statex.UrgencyMedium
	default:
		return statex.UrgencyLow
	}
}

// DaysSince counts whole elapsed days; future timestamps count as zero.
func DaysSince(then, now time.Time) int {
	d := now.Sub(then)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// LatestPerMedicine keeps the newest row per medicine name, newest first.
func LatestPerMedicine(history []contractx.HistoryRow) []contractx.HistoryRow {
	latest := make(map[string]contractx.HistoryRow, len(history))
	for _, h := range history {
		cur, ok := latest[h.MedicineName]
		if !ok || h.CreatedAt.After(cur.CreatedAt) || (h.CreatedAt.Equal(cur.CreatedAt) && h.ID > cur.ID) {
			latest[h.MedicineName] = h
		}
	}

	out := make([]contractx.HistoryRow, 0, len(latest))
	for _, h := range latest {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MedicineName < out[j].MedicineName
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RefillAlerts flags medicines whose estimated supply is at or below the threshold.
func RefillAlerts(history []contractx.HistoryRow, now time.Time, cfg Config) []statex.RefillAlert {
	cfg = cfg.Normalize()

	alerts := make([]statex.RefillAlert, 0)
	for _, h := range LatestPerMedicine(history) {
		remaining := EstimateDaysRemaining(h.Quantity, DaysSince(h.CreatedAt, now), cfg)
		if remaining > cfg.RefillThresholdDays {
			continue
		}
		alerts = append(alerts, statex.RefillAlert{
			Medicine:      h.MedicineName,
			DaysRemaining: remaining,
			Urgency:       UrgencyFromDays(remaining),
			LastOrderedAt: h.CreatedAt,
			Message:       refillAlertMessage,
		})
	}
	return alerts
}
