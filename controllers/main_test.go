package controller_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"advportal/config"
	"advportal/models"
	"advportal/routes"
	"advportal/utils"
	"advportal/worker"
)

// setupTestApp builds the full route surface against an in-memory database.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// The auth middleware and token helpers read the package globals
	config.DB = db
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.Redis.Enabled = false
	config.Redis = nil

	app := fiber.New()
	runner := worker.NewAutomationWorker(db, log.New(io.Discard, "", 0))
	routes.SetupRoutes(app, db, runner)
	return app, db
}

func seedTenant(t *testing.T, db *gorm.DB, slug string) *models.Tenant {
	t.Helper()
	tenant := models.Tenant{
		Slug:          slug,
		Name:          slug,
		Domain:        slug + ".example.com",
		WebhookSecret: "secret-" + slug,
		AgentID:       "agent-" + slug,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return &tenant
}

func seedStage(t *testing.T, db *gorm.DB, tenantID, name string, position int, isDefault bool) *models.PipelineStage {
	t.Helper()
	stage := models.PipelineStage{
		TenantID:  tenantID,
		Name:      name,
		Position:  position,
		IsDefault: isDefault,
	}
	if err := db.Create(&stage).Error; err != nil {
		t.Fatalf("failed to seed stage: %v", err)
	}
	return &stage
}

func seedLead(t *testing.T, db *gorm.DB, tenantID string, stageID *string, name string) *models.Lead {
	t.Helper()
	lead := models.Lead{
		TenantID: tenantID,
		StageID:  stageID,
		Name:     name,
	}
	if err := db.Create(&lead).Error; err != nil {
		t.Fatalf("failed to seed lead: %v", err)
	}
	return &lead
}

func authHeader(t *testing.T, tenant *models.Tenant) map[string]string {
	t.Helper()
	token, err := utils.GeneratePortalToken("user-1", tenant.ID)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// doJSON performs one request against the app and decodes the JSON body.
func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp, out
}

func countLeads(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.Lead{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count leads: %v", err)
	}
	return count
}

func countActivities(t *testing.T, db *gorm.DB, activityType string) int64 {
	t.Helper()
	var count int64
	err := db.Model(&models.LeadActivity{}).
		Where("activity_type = ?", activityType).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count activities: %v", err)
	}
	return count
}
