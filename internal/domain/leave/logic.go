package leave

import (
	"fmt"
	"time"
)

// ApproverStep names the next decision a pending request is waiting on.
type ApproverStep string

const (
	StepManager ApproverStep = "manager"
	StepHR      ApproverStep = "hr"
	StepNone    ApproverStep = "none"
)

// NextRequiredApprover resolves which step a request waits on next, purely
// from the policy's approval level and the request's recorded progress. Both
// the authorization checks and the API metadata come from this one function.
func NextRequiredApprover(policy LeavePolicy, req LeaveRequest) ApproverStep {
	if req.Status != StatusPending {
		return StepNone
	}
	switch policy.ApprovalLevel {
	case ApprovalHR:
		return StepHR
	case ApprovalBoth:
		if req.ManagerApprovalStatus == StatusApproved {
			return StepHR
		}
		return StepManager
	default:
		return StepManager
	}
}

// BusinessDays counts the leave days consumed by [start, end] inclusive.
// Weekends and holidays are skipped unless countNonWorkingDays is set.
// A half-day request is only valid over a single day and counts 0.5.
func BusinessDays(start, end time.Time, isHalfDay, countNonWorkingDays bool, holidays []Holiday) (float64, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	if isHalfDay && !start.Equal(end) {
		return 0, fmt.Errorf("%w: half-day leave must start and end on the same day", ErrValidation)
	}

	holidaySet := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		holidaySet[truncateToDay(h.Date)] = true
	}

	var days float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !countNonWorkingDays {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			if holidaySet[d] {
				continue
			}
		}
		days++
	}
	if days == 0 {
		return 0, fmt.Errorf("%w: range contains no working days", ErrValidation)
	}
	if isHalfDay {
		days = 0.5
	}
	return days, nil
}

// FiscalYearOf returns the balance-accounting year a date falls in. With a
// start month of January this is the calendar year; otherwise dates before
// the start month belong to the previous fiscal year.
func FiscalYearOf(date time.Time, startMonth time.Month) int {
	if startMonth <= time.January {
		return date.Year()
	}
	if date.Month() < startMonth {
		return date.Year() - 1
	}
	return date.Year()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
