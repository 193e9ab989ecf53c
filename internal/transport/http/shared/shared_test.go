package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	day, err := ParseDate("2026-03-02")
	if err != nil {
		t.Fatalf("plain date: %v", err)
	}
	if day.Year() != 2026 || day.Month() != time.March || day.Day() != 2 {
		t.Fatalf("unexpected date: %v", day)
	}

	stamp, err := ParseDate("2026-03-02T10:30:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if stamp.Hour() != 10 {
		t.Fatalf("unexpected timestamp: %v", stamp)
	}

	zero, err := ParseDate("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("empty input should yield zero time, got %v, %v", zero, err)
	}

	if _, err := ParseDate("02/03/2026"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&offset=30", nil)
	page := ParsePagination(req, 50, 200)
	if page.Limit != 10 || page.Offset != 30 {
		t.Fatalf("unexpected pagination: %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	page = ParsePagination(req, 50, 200)
	if page.Limit != 50 || page.Offset != 0 {
		t.Fatalf("defaults not applied: %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=9999", nil)
	page = ParsePagination(req, 50, 200)
	if page.Limit != 200 {
		t.Fatalf("max limit not enforced: %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=-5&offset=-1", nil)
	page = ParsePagination(req, 50, 200)
	if page.Limit != 50 || page.Offset != 0 {
		t.Fatalf("negative values not ignored: %+v", page)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.7" {
		t.Fatalf("expected forwarded address, got %q", ip)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:8888"
	if ip := ClientIP(req); ip != "10.0.0.2" {
		t.Fatalf("expected remote host, got %q", ip)
	}
}

func TestValidatorCollectsAndSortsIssues(t *testing.T) {
	v := NewValidator()
	v.Required("reason", "", "reason required")
	v.Required("policyId", "", "policy id required")
	v.Enum("status", "bogus", []string{"pending", "approved"}, "unknown status")
	v.Enum("approvalLevel", "manager", []string{"manager", "hr", "both"}, "unknown approval level")

	if !v.HasIssues() {
		t.Fatal("expected issues")
	}
	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Field != "policyId" || issues[2].Field != "status" {
		t.Fatalf("issues not sorted by field: %+v", issues)
	}
}

func TestValidatorDateAndOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("startDate", "2026-06-01")
	if !ok || v.HasIssues() {
		t.Fatalf("valid date flagged: %+v", v.Issues())
	}
	end, ok := v.Date("endDate", "2026-05-01")
	if !ok {
		t.Fatal("valid date rejected")
	}
	v.DateOrder("startDate", start, "endDate", end)
	if len(v.Issues()) != 2 {
		t.Fatalf("expected order issues for both fields, got %+v", v.Issues())
	}

	v = NewValidator()
	if _, ok := v.Date("startDate", "not-a-date"); ok {
		t.Fatal("invalid date accepted")
	}
	if !v.HasIssues() {
		t.Fatal("expected issue for invalid date")
	}
}

func TestValidatorRejectWritesEnvelope(t *testing.T) {
	v := NewValidator()
	v.Required("name", "", "name required")

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Success || envelope.Error == nil || envelope.Error.Code != "validation_error" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if envelope.RequestID != "req-1" {
		t.Fatalf("request id not echoed: %+v", envelope)
	}

	clean := NewValidator()
	rec = httptest.NewRecorder()
	if clean.Reject(rec, "req-2") {
		t.Fatal("clean validator must not reject")
	}
}
