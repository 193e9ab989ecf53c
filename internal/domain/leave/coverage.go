package leave

import "time"

// Coverage risk thresholds, in percent of a team still available.
const (
	CoverageHighRiskBelow   = 50.0
	CoverageMediumRiskBelow = 75.0
)

const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

type CoverageDay struct {
	Date               time.Time `json:"date"`
	Total              int       `json:"total"`
	OnLeave            int       `json:"onLeave"`
	Available          int       `json:"available"`
	CoveragePercentage float64   `json:"coveragePercentage"`
	RiskLevel          string    `json:"riskLevel"`
}

// AnalyzeCoverage computes per-day team availability over [start, end]
// inclusive. Each absence interval contributes its employee to every day it
// contains; one employee absent on a day counts once however many requests
// overlap it.
func AnalyzeCoverage(start, end time.Time, headcount int, absences []Absence) []CoverageDay {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if end.Before(start) {
		return nil
	}

	var out []CoverageDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		seen := make(map[string]bool)
		for _, a := range absences {
			if d.Before(truncateToDay(a.StartDate)) || d.After(truncateToDay(a.EndDate)) {
				continue
			}
			seen[a.EmployeeID] = true
		}
		onLeave := len(seen)
		available := headcount - onLeave
		if available < 0 {
			available = 0
		}
		pct := 100.0
		if headcount > 0 {
			pct = float64(available) / float64(headcount) * 100
		}
		out = append(out, CoverageDay{
			Date:               d,
			Total:              headcount,
			OnLeave:            onLeave,
			Available:          available,
			CoveragePercentage: pct,
			RiskLevel:          riskLevel(pct),
		})
	}
	return out
}

// ConflictDays filters a coverage report down to days where the team drops
// below the minimum required headcount.
func ConflictDays(days []CoverageDay, minTeamSize int) []CoverageDay {
	var out []CoverageDay
	for _, d := range days {
		if d.Available < minTeamSize {
			out = append(out, d)
		}
	}
	return out
}

func riskLevel(coveragePct float64) string {
	switch {
	case coveragePct < CoverageHighRiskBelow:
		return RiskHigh
	case coveragePct < CoverageMediumRiskBelow:
		return RiskMedium
	default:
		return RiskLow
	}
}
