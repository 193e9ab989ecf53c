package leave

import (
	"testing"
)

func TestAnalyzeCoverageOverlap(t *testing.T) {
	// Five-person department over five days; three leaves overlap day 3.
	start := date(2026, 6, 1)
	end := date(2026, 6, 5)
	absences := []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 3)},
		{EmployeeID: "e2", StartDate: date(2026, 6, 3), EndDate: date(2026, 6, 5)},
		{EmployeeID: "e3", StartDate: date(2026, 6, 3), EndDate: date(2026, 6, 3)},
	}

	days := AnalyzeCoverage(start, end, 5, absences)
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}

	day3 := days[2]
	if day3.OnLeave != 3 {
		t.Fatalf("expected 3 on leave, got %d", day3.OnLeave)
	}
	if day3.Available != 2 {
		t.Fatalf("expected 2 available, got %d", day3.Available)
	}
	if day3.CoveragePercentage != 40 {
		t.Fatalf("expected 40%% coverage, got %v", day3.CoveragePercentage)
	}
	if day3.RiskLevel != RiskHigh {
		t.Fatalf("expected high risk, got %s", day3.RiskLevel)
	}

	day1 := days[0]
	if day1.OnLeave != 1 || day1.Available != 4 {
		t.Fatalf("expected 1 on leave and 4 available on day 1, got %d/%d", day1.OnLeave, day1.Available)
	}
	if day1.RiskLevel != RiskLow {
		t.Fatalf("expected low risk on day 1, got %s", day1.RiskLevel)
	}
}

func TestAnalyzeCoverageCountsEmployeeOnce(t *testing.T) {
	// Two overlapping requests from the same employee count once per day.
	absences := []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 2)},
		{EmployeeID: "e1", StartDate: date(2026, 6, 2), EndDate: date(2026, 6, 3)},
	}
	days := AnalyzeCoverage(date(2026, 6, 2), date(2026, 6, 2), 4, absences)
	if days[0].OnLeave != 1 {
		t.Fatalf("expected 1 on leave, got %d", days[0].OnLeave)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	// 3 of 4 available: 75% sits exactly on the medium boundary and is low.
	days := AnalyzeCoverage(date(2026, 6, 1), date(2026, 6, 1), 4, []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 1)},
	})
	if days[0].RiskLevel != RiskLow {
		t.Fatalf("expected low at 75%%, got %s", days[0].RiskLevel)
	}

	days = AnalyzeCoverage(date(2026, 6, 1), date(2026, 6, 1), 3, []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 1)},
	})
	if days[0].RiskLevel != RiskMedium {
		t.Fatalf("expected medium at 66%%, got %s", days[0].RiskLevel)
	}

	days = AnalyzeCoverage(date(2026, 6, 1), date(2026, 6, 1), 2, []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 1)},
	})
	if days[0].RiskLevel != RiskMedium {
		t.Fatalf("expected medium at 50%%, got %s", days[0].RiskLevel)
	}

	days = AnalyzeCoverage(date(2026, 6, 1), date(2026, 6, 1), 2, []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 1)},
		{EmployeeID: "e2", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 1)},
	})
	if days[0].RiskLevel != RiskHigh {
		t.Fatalf("expected high at 0%%, got %s", days[0].RiskLevel)
	}
}

func TestConflictDays(t *testing.T) {
	days := AnalyzeCoverage(date(2026, 6, 1), date(2026, 6, 3), 5, []Absence{
		{EmployeeID: "e1", StartDate: date(2026, 6, 2), EndDate: date(2026, 6, 3)},
		{EmployeeID: "e2", StartDate: date(2026, 6, 2), EndDate: date(2026, 6, 2)},
		{EmployeeID: "e3", StartDate: date(2026, 6, 2), EndDate: date(2026, 6, 2)},
		{EmployeeID: "e4", StartDate: date(2026, 6, 2), EndDate: date(2026, 6, 2)},
	})

	conflicts := ConflictDays(days, 2)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict day, got %d", len(conflicts))
	}
	if !conflicts[0].Date.Equal(date(2026, 6, 2)) {
		t.Fatalf("expected conflict on june 2, got %v", conflicts[0].Date)
	}
}
