package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestTenantIDPattern(t *testing.T) {
	valid := []string{"default", "clinic_01", "ABC123"}
	invalid := []string{"", "bad-id", "x;DROP TABLE", "a b"}

	for _, id := range valid {
		if !tenantIDPattern.MatchString(id) {
			t.Errorf("expected %q to be a valid organization id", id)
		}
	}
	for _, id := range invalid {
		if tenantIDPattern.MatchString(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestExtractTenantID_Priority(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?tenant_id=query_org", nil)
	req.Header.Set("X-Tenant-ID", "header_org")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if tid := extractTenantID(c, "default"); tid != "header_org" {
		t.Errorf("expected header to win over query, got %s", tid)
	}

	c.Set("jwt_tenant_id", "jwt_org")
	if tid := extractTenantID(c, "default"); tid != "jwt_org" {
		t.Errorf("expected JWT claim to win, got %s", tid)
	}
}

func TestExtractTenantID_Default(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if tid := extractTenantID(c, "default"); tid != "default" {
		t.Errorf("expected default organization, got %s", tid)
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "clinic_main")
	if tid := TenantFromContext(ctx); tid != "clinic_main" {
		t.Errorf("expected clinic_main, got %s", tid)
	}
	if tid := TenantFromContext(context.Background()); tid != "" {
		t.Errorf("expected empty string, got %s", tid)
	}
}

func TestCreateTenantSchema_InvalidID(t *testing.T) {
	err := CreateTenantSchema(context.Background(), nil, "invalid-id!", "")
	if err == nil {
		t.Error("expected error for invalid organization ID")
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err == nil {
		t.Error("expected error when no connection in context")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestRunInTx_NoConnection(t *testing.T) {
	err := RunInTx(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("expected error when no connection in context")
	}
}
