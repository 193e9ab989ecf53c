package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hrops/internal/platform/querier"
)

type Service struct {
	DB querier.Querier
}

func NewService(db querier.Querier) *Service {
	return &Service{DB: db}
}

type BalanceRow struct {
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName"`
	PolicyID     string  `json:"policyId"`
	LeaveType    string  `json:"leaveType"`
	FiscalYear   int     `json:"fiscalYear"`
	Entitled     float64 `json:"entitled"`
	Used         float64 `json:"used"`
	Pending      float64 `json:"pending"`
	Available    float64 `json:"available"`
}

func (s *Service) BalanceSummary(ctx context.Context, fiscalYear int) ([]BalanceRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT b.employee_id, e.first_name || ' ' || e.last_name, b.policy_id, p.leave_type,
           b.fiscal_year, b.entitled, b.used, b.pending
    FROM leave_balances b
    JOIN employees e ON b.employee_id = e.id
    JOIN leave_policies p ON b.policy_id = p.id
    WHERE b.fiscal_year = $1
    ORDER BY e.last_name, e.first_name, p.leave_type
  `, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var r BalanceRow
		if err := rows.Scan(&r.EmployeeID, &r.EmployeeName, &r.PolicyID, &r.LeaveType, &r.FiscalYear, &r.Entitled, &r.Used, &r.Pending); err != nil {
			return nil, err
		}
		r.Available = r.Entitled - r.Used - r.Pending
		out = append(out, r)
	}
	return out, rows.Err()
}

type UsageRow struct {
	PolicyID      string  `json:"policyId"`
	LeaveType     string  `json:"leaveType"`
	ApprovedDays  float64 `json:"approvedDays"`
	RequestCount  int     `json:"requestCount"`
	EmployeeCount int     `json:"employeeCount"`
}

func (s *Service) UsageByPolicy(ctx context.Context, from, to time.Time) ([]UsageRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.policy_id, p.leave_type, COALESCE(SUM(r.total_days), 0), COUNT(1), COUNT(DISTINCT r.employee_id)
    FROM leave_requests r
    JOIN leave_policies p ON r.policy_id = p.id
    WHERE r.status = 'approved' AND r.start_date >= $1 AND r.start_date <= $2
    GROUP BY r.policy_id, p.leave_type
    ORDER BY p.leave_type
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var r UsageRow
		if err := rows.Scan(&r.PolicyID, &r.LeaveType, &r.ApprovedDays, &r.RequestCount, &r.EmployeeCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type OverdueRow struct {
	RequestID    string    `json:"requestId"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	LeaveType    string    `json:"leaveType"`
	TotalDays    float64   `json:"totalDays"`
	AppliedAt    time.Time `json:"appliedAt"`
	StartDate    time.Time `json:"startDate"`
}

// OverduePending lists requests that have sat undecided longer than the
// threshold. Computed on demand from applied_at; nothing runs on a timer.
func (s *Service) OverduePending(ctx context.Context, olderThan time.Duration) ([]OverdueRow, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.employee_id, e.first_name || ' ' || e.last_name, r.leave_type, r.total_days, r.applied_at, r.start_date
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.status = 'pending' AND r.applied_at < $1
    ORDER BY r.applied_at ASC, r.id ASC
  `, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueRow
	for rows.Next() {
		var r OverdueRow
		if err := rows.Scan(&r.RequestID, &r.EmployeeID, &r.EmployeeName, &r.LeaveType, &r.TotalDays, &r.AppliedAt, &r.StartDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WriteBalancePDF renders the balance summary as a one-page-per-overflow PDF.
func (s *Service) WriteBalancePDF(ctx context.Context, w io.Writer, fiscalYear int) error {
	balances, err := s.BalanceSummary(ctx, fiscalYear)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Leave Balances %d", fiscalYear))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{60, 30, 25, 25, 25, 25}
	headers := []string{"Employee", "Type", "Entitled", "Used", "Pending", "Available"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, b := range balances {
		pdf.CellFormat(widths[0], 7, b.EmployeeName, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, b.LeaveType, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%.1f", b.Entitled), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%.1f", b.Used), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%.1f", b.Pending), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 7, fmt.Sprintf("%.1f", b.Available), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
