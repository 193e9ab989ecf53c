package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hrops/internal/app/server"
	"hrops/internal/domain/auth"
	"hrops/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Addr:                 ":0",
		DatabaseURL:          dbURL,
		JWTSecret:            "test-secret",
		TokenTTL:             time.Hour,
		Environment:          "test",
		SeedAdminEmail:       "admin@test.local",
		SeedAdminPassword:    "ChangeMe123!",
		EmailFrom:            "no-reply@test.local",
		RunMigrations:        true,
		RunSeed:              true,
		MigrationsDir:        "../../../../migrations",
		MaxBodyBytes:         1048576,
		RateLimitPerMinute:   1000,
		CORSAllowedOrigins:   []string{"*"},
		FiscalYearStartMonth: 1,
		OverdueAfter:         72 * time.Hour,
	}
}

// nextMonday returns a Monday at least 30 days out, so notice rules and
// weekend skipping never interfere with the journey.
func nextMonday() time.Time {
	day := time.Now().UTC().AddDate(0, 0, 30)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func TestLeaveRequestJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	ctx := context.Background()
	suffix := time.Now().UnixNano()

	// Org fixtures go in via SQL: user administration is not part of the API
	// surface, only the leave flows under test are.
	var departmentID string
	if err := app.DB.QueryRow(ctx,
		"INSERT INTO departments (name) VALUES ($1) RETURNING id",
		fmt.Sprintf("Engineering %d", suffix)).Scan(&departmentID); err != nil {
		t.Fatalf("create department: %v", err)
	}

	_, managerEmployeeID := createPerson(t, app, departmentID, "", auth.RoleManager, suffix, "manager")
	_, employeeID := createPerson(t, app, departmentID, managerEmployeeID, auth.RoleEmployee, suffix, "employee")
	if _, err := app.DB.Exec(ctx, "UPDATE departments SET manager_id = $1 WHERE id = $2", managerEmployeeID, departmentID); err != nil {
		t.Fatalf("assign department manager: %v", err)
	}

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	employeeToken := login(t, client, ts.URL, fmt.Sprintf("employee-%d@test.local", suffix), "Passw0rd!")
	managerToken := login(t, client, ts.URL, fmt.Sprintf("manager-%d@test.local", suffix), "Passw0rd!")

	var policy struct {
		ID string `json:"id"`
	}
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/policies", adminToken, map[string]any{
		"leaveType":     "ANNUAL",
		"name":          fmt.Sprintf("Annual Leave %d", suffix),
		"approvalLevel": "manager",
		"maxDaysPerRequest": 20,
		"defaultEntitlement": 20,
		"isActive":      true,
	}, http.StatusCreated, &policy)

	start := nextMonday()
	end := start.AddDate(0, 0, 4)
	fiscalYear := start.Year()

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/seed", adminToken, map[string]any{
		"employeeId": employeeID,
		"policyId":   policy.ID,
		"fiscalYear": fiscalYear,
		"days":       20,
	}, http.StatusOK, nil)

	var request struct {
		ID        string  `json:"id"`
		Status    string  `json:"status"`
		TotalDays float64 `json:"totalDays"`
	}
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]any{
		"policyId":  policy.ID,
		"startDate": start.Format("2006-01-02"),
		"endDate":   end.Format("2006-01-02"),
		"reason":    "family visit",
	}, http.StatusCreated, &request)
	if request.Status != "pending" {
		t.Fatalf("expected pending request, got %s", request.Status)
	}
	if request.TotalDays != 5 {
		t.Fatalf("expected 5 working days, got %v", request.TotalDays)
	}

	checkBalances(t, client, ts.URL, employeeToken, fiscalYear, 20, 0, 5)

	var approved struct {
		Status string `json:"status"`
	}
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/approve", managerToken,
		map[string]any{"comments": "enjoy"}, http.StatusOK, &approved)
	if approved.Status != "approved" {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	checkBalances(t, client, ts.URL, employeeToken, fiscalYear, 20, 5, 0)

	var trail []struct {
		Action string `json:"action"`
	}
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/leave/requests/"+request.ID+"/audit", employeeToken,
		nil, http.StatusOK, &trail)
	if len(trail) != 2 || trail[0].Action != "submitted" || trail[1].Action != "manager_approved" {
		t.Fatalf("unexpected audit trail: %+v", trail)
	}

	// The owner cancels before the start date; usage returns to the ledger.
	var cancelled struct {
		Status string `json:"status"`
	}
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/cancel", employeeToken,
		map[string]any{"reason": "plans changed"}, http.StatusOK, &cancelled)
	if cancelled.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	checkBalances(t, client, ts.URL, employeeToken, fiscalYear, 20, 0, 0)

	// The schema itself refuses a ledger that over-commits entitlement, even
	// when someone writes around the engine.
	if _, err := app.DB.Exec(ctx,
		"UPDATE leave_balances SET used = entitled + 1 WHERE employee_id = $1", employeeID); err == nil {
		t.Fatal("expected the balance check constraint to reject over-commitment")
	}
}

func createPerson(t *testing.T, app *server.App, departmentID, managerEmployeeID, role string, suffix int64, label string) (string, string) {
	t.Helper()
	ctx := context.Background()

	hash, err := auth.HashPassword("Passw0rd!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	email := fmt.Sprintf("%s-%d@test.local", label, suffix)

	var userID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_name, status)
    VALUES ($1, $2, $3, 'active')
    RETURNING id
  `, email, hash, role).Scan(&userID); err != nil {
		t.Fatalf("create %s user: %v", label, err)
	}

	var employeeID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, first_name, last_name, email, department_id, manager_id, status)
    VALUES ($1, $2, $3, $4, $5, NULLIF($6,'')::uuid, 'active')
    RETURNING id
  `, userID, label, "Test", email, departmentID, managerEmployeeID).Scan(&employeeID); err != nil {
		t.Fatalf("create %s employee: %v", label, err)
	}
	return userID, employeeID
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	var result struct {
		Token string `json:"token"`
	}
	doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "",
		map[string]string{"email": email, "password": password}, http.StatusOK, &result)
	if result.Token == "" {
		t.Fatal("expected login token")
	}
	return result.Token
}

func checkBalances(t *testing.T, client *http.Client, baseURL, token string, fiscalYear int, entitled, used, pending float64) {
	t.Helper()
	var balances []struct {
		Entitled float64 `json:"entitled"`
		Used     float64 `json:"used"`
		Pending  float64 `json:"pending"`
	}
	doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/api/v1/leave/balances?fiscalYear=%d", baseURL, fiscalYear),
		token, nil, http.StatusOK, &balances)
	if len(balances) != 1 {
		t.Fatalf("expected one balance row, got %d", len(balances))
	}
	b := balances[0]
	if b.Entitled != entitled || b.Used != used || b.Pending != pending {
		t.Fatalf("unexpected balance: entitled=%v used=%v pending=%v", b.Entitled, b.Used, b.Pending)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload any, wantStatus int, out any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, raw)
	}
	if out == nil {
		return
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("%s %s: unsuccessful envelope: %s", method, url, raw)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
