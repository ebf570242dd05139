package worker_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"advportal/models"
	"advportal/worker"
)

func setupWorker(t *testing.T) (*worker.AutomationWorker, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Tenant{},
		&models.PipelineStage{},
		&models.Lead{},
		&models.LeadActivity{},
		&models.ScheduledAutomation{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return worker.NewAutomationWorker(db, log.New(io.Discard, "", 0)), db
}

func seedLeadWithTenant(t *testing.T, db *gorm.DB) (*models.Tenant, *models.Lead) {
	t.Helper()
	tenant := models.Tenant{Slug: "advai", Name: "AdvAI", WebhookSecret: "secret"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}
	lead := models.Lead{TenantID: tenant.ID, Name: "Maria Silva"}
	if err := db.Create(&lead).Error; err != nil {
		t.Fatal(err)
	}
	return &tenant, &lead
}

func seedAutomation(t *testing.T, db *gorm.DB, tenantID, leadID, automationType string, scheduledFor time.Time) *models.ScheduledAutomation {
	t.Helper()
	automation := models.ScheduledAutomation{
		TenantID:       tenantID,
		LeadID:         leadID,
		AutomationType: automationType,
		ScheduledFor:   scheduledFor,
		Payload:        map[string]interface{}{"note": "ping"},
	}
	if err := db.Create(&automation).Error; err != nil {
		t.Fatal(err)
	}
	return &automation
}

func TestProcessDueFiresOnlyElapsedRecords(t *testing.T) {
	w, db := setupWorker(t)
	tenant, lead := seedLeadWithTenant(t, db)

	due := seedAutomation(t, db, tenant.ID, lead.ID, models.AutomationMeetingReminder, time.Now().Add(-time.Minute))
	seedAutomation(t, db, tenant.ID, lead.ID, models.AutomationFollowUp, time.Now().Add(time.Hour))

	report, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Processed != 1 || report.Successful != 1 {
		t.Fatalf("expected 1/1, got %d/%d", report.Successful, report.Processed)
	}
	if len(report.Results) != 1 || report.Results[0].ID != due.ID || !report.Results[0].Success {
		t.Fatalf("unexpected results: %+v", report.Results)
	}

	var record models.ScheduledAutomation
	db.First(&record, "id = ?", due.ID)
	if !record.Executed || record.ExecutedAt == nil {
		t.Error("due record must be marked executed")
	}

	var activities int64
	db.Model(&models.LeadActivity{}).
		Where("lead_id = ? AND activity_type = ?", lead.ID, models.ActivityAutomation).
		Count(&activities)
	if activities != 1 {
		t.Errorf("expected one automation activity, got %d", activities)
	}
}

func TestProcessDueNeverRefiresExecutedRecords(t *testing.T) {
	w, db := setupWorker(t)
	tenant, lead := seedLeadWithTenant(t, db)
	seedAutomation(t, db, tenant.ID, lead.ID, models.AutomationFollowUp, time.Now().Add(-time.Minute))

	if _, err := w.ProcessDue(context.Background()); err != nil {
		t.Fatal(err)
	}
	report, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Processed != 0 {
		t.Fatalf("executed record must not be picked up again, processed %d", report.Processed)
	}

	var activities int64
	db.Model(&models.LeadActivity{}).Where("lead_id = ?", lead.ID).Count(&activities)
	if activities != 1 {
		t.Errorf("expected exactly one activity across both runs, got %d", activities)
	}
}

func TestProcessDueFailedRecordStaysPending(t *testing.T) {
	w, db := setupWorker(t)
	tenant, lead := seedLeadWithTenant(t, db)

	// References a lead that no longer exists, so the side effect fails.
	broken := seedAutomation(t, db, tenant.ID, uuid.NewString(), models.AutomationFollowUp, time.Now().Add(-2*time.Minute))
	healthy := seedAutomation(t, db, tenant.ID, lead.ID, models.AutomationFollowUp, time.Now().Add(-time.Minute))

	report, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Processed != 2 || report.Successful != 1 {
		t.Fatalf("expected 1/2, got %d/%d", report.Successful, report.Processed)
	}

	var record models.ScheduledAutomation
	db.First(&record, "id = ?", broken.ID)
	if record.Executed {
		t.Error("failed record must stay pending for the next run")
	}
	db.First(&record, "id = ?", healthy.ID)
	if !record.Executed {
		t.Error("one record's failure must not abort the rest of the batch")
	}
}

func TestProcessDueUnknownTypeStillExecutes(t *testing.T) {
	w, db := setupWorker(t)
	tenant, lead := seedLeadWithTenant(t, db)
	odd := seedAutomation(t, db, tenant.ID, lead.ID, "left_field", time.Now().Add(-time.Minute))

	report, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Successful != 1 {
		t.Fatalf("unknown type must still complete, got %d successful", report.Successful)
	}

	var record models.ScheduledAutomation
	db.First(&record, "id = ?", odd.ID)
	if !record.Executed {
		t.Error("unknown-type record must be marked executed")
	}
}
