package leave

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDaysSkipsWeekends(t *testing.T) {
	// Mon 2026-03-02 through Sun 2026-03-08: five working days.
	days, err := BusinessDays(date(2026, 3, 2), date(2026, 3, 8), false, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 5 {
		t.Fatalf("expected 5 days, got %v", days)
	}
}

func TestBusinessDaysSkipsHolidays(t *testing.T) {
	holidays := []Holiday{{Date: date(2026, 3, 4), Name: "Mid-week holiday"}}
	days, err := BusinessDays(date(2026, 3, 2), date(2026, 3, 6), false, false, holidays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 4 {
		t.Fatalf("expected 4 days, got %v", days)
	}
}

func TestBusinessDaysCountNonWorkingDays(t *testing.T) {
	holidays := []Holiday{{Date: date(2026, 3, 4), Name: "Mid-week holiday"}}
	days, err := BusinessDays(date(2026, 3, 2), date(2026, 3, 8), false, true, holidays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 7 {
		t.Fatalf("expected 7 days, got %v", days)
	}
}

func TestBusinessDaysHalfDay(t *testing.T) {
	days, err := BusinessDays(date(2026, 3, 2), date(2026, 3, 2), true, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 0.5 {
		t.Fatalf("expected 0.5 days, got %v", days)
	}
}

func TestBusinessDaysHalfDayOverRange(t *testing.T) {
	_, err := BusinessDays(date(2026, 3, 2), date(2026, 3, 3), true, false, nil)
	if err == nil {
		t.Fatal("expected error for multi-day half-day request")
	}
}

func TestBusinessDaysInvalidRange(t *testing.T) {
	_, err := BusinessDays(date(2026, 3, 8), date(2026, 3, 2), false, false, nil)
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestBusinessDaysWeekendOnly(t *testing.T) {
	_, err := BusinessDays(date(2026, 3, 7), date(2026, 3, 8), false, false, nil)
	if err == nil {
		t.Fatal("expected error for range with no working days")
	}
}

func TestFiscalYearOf(t *testing.T) {
	if got := FiscalYearOf(date(2026, 3, 15), time.January); got != 2026 {
		t.Fatalf("expected 2026, got %d", got)
	}
	// April fiscal start: March belongs to the previous fiscal year.
	if got := FiscalYearOf(date(2026, 3, 15), time.April); got != 2025 {
		t.Fatalf("expected 2025, got %d", got)
	}
	if got := FiscalYearOf(date(2026, 4, 1), time.April); got != 2026 {
		t.Fatalf("expected 2026, got %d", got)
	}
}

func TestNextRequiredApprover(t *testing.T) {
	pending := LeaveRequest{Status: StatusPending}

	if step := NextRequiredApprover(LeavePolicy{ApprovalLevel: ApprovalManager}, pending); step != StepManager {
		t.Fatalf("expected manager step, got %s", step)
	}
	if step := NextRequiredApprover(LeavePolicy{ApprovalLevel: ApprovalHR}, pending); step != StepHR {
		t.Fatalf("expected hr step, got %s", step)
	}
	if step := NextRequiredApprover(LeavePolicy{ApprovalLevel: ApprovalBoth}, pending); step != StepManager {
		t.Fatalf("expected manager step, got %s", step)
	}

	managerDone := LeaveRequest{Status: StatusPending, ManagerApprovalStatus: StatusApproved}
	if step := NextRequiredApprover(LeavePolicy{ApprovalLevel: ApprovalBoth}, managerDone); step != StepHR {
		t.Fatalf("expected hr step after manager approval, got %s", step)
	}

	if step := NextRequiredApprover(LeavePolicy{ApprovalLevel: ApprovalBoth}, LeaveRequest{Status: StatusApproved}); step != StepNone {
		t.Fatalf("expected no step for terminal request, got %s", step)
	}
}

func TestRequestTerminal(t *testing.T) {
	today := date(2026, 3, 10)

	if (LeaveRequest{Status: StatusRejected}).Terminal(today) != true {
		t.Fatal("rejected requests are terminal")
	}
	future := LeaveRequest{Status: StatusApproved, StartDate: date(2026, 3, 20)}
	if future.Terminal(today) {
		t.Fatal("approved request before start date is not terminal")
	}
	started := LeaveRequest{Status: StatusApproved, StartDate: date(2026, 3, 10)}
	if !started.Terminal(today) {
		t.Fatal("approved request past start date is terminal")
	}
}
