package controller_test

import (
	"net/http"
	"testing"

	"advportal/models"
)

func TestGetTenantConfigResolvesHostname(t *testing.T) {
	app, db := setupTestApp(t)
	seedTenant(t, db, "advai")
	seedTenant(t, db, models.DefaultTenantSlug)

	resp, body := doJSON(t, app, http.MethodGet, "http://advai.example.com/api/tenant-config", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data := body["data"].(map[string]interface{})
	if data["slug"] != "advai" {
		t.Errorf("expected advai tenant, got %v", data["slug"])
	}
	for _, secret := range []string{"webhook_secret", "agent_id"} {
		if _, leaked := data[secret]; leaked {
			t.Errorf("tenant config must not expose %s", secret)
		}
	}

	resp, body = doJSON(t, app, http.MethodGet, "http://unmatched.example.org/api/tenant-config", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 fallback, got %d", resp.StatusCode)
	}
	data = body["data"].(map[string]interface{})
	if data["slug"] != models.DefaultTenantSlug {
		t.Errorf("unmatched host must fall back to default, got %v", data["slug"])
	}
}
