package controller_test

import (
	"net/http"
	"testing"

	"advportal/models"
)

func TestCreateStageAppendsAtEnd(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")
	seedStage(t, db, tenant.ID, "New Lead", 1, true)
	seedStage(t, db, tenant.ID, "In Conversation", 2, false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/stages",
		map[string]interface{}{"name": "Closed", "color": "#22c55e"},
		authHeader(t, tenant))

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}
	data := body["data"].(map[string]interface{})
	if pos := data["position"].(float64); pos != 3 {
		t.Errorf("expected position 3, got %v", pos)
	}
}

func TestCreateStageDefaultsColor(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")

	resp, body := doJSON(t, app, http.MethodPost, "/api/stages",
		map[string]interface{}{"name": "Inbox"},
		authHeader(t, tenant))

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	data := body["data"].(map[string]interface{})
	if color := data["color"].(string); color != models.DefaultStageColor {
		t.Errorf("expected default color %s, got %s", models.DefaultStageColor, color)
	}
}

func TestDeleteStageParksLeadsWithoutStage(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")
	stage := seedStage(t, db, tenant.ID, "Doomed", 1, false)
	keep := seedStage(t, db, tenant.ID, "Keep", 2, false)
	a := seedLead(t, db, tenant.ID, &stage.ID, "Lead A")
	b := seedLead(t, db, tenant.ID, &stage.ID, "Lead B")
	c := seedLead(t, db, tenant.ID, &keep.ID, "Lead C")

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/stages/"+stage.ID, nil, authHeader(t, tenant))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	for _, id := range []string{a.ID, b.ID} {
		var lead models.Lead
		if err := db.First(&lead, "id = ?", id).Error; err != nil {
			t.Fatalf("lead %s must survive stage deletion: %v", id, err)
		}
		if lead.StageID != nil {
			t.Errorf("lead %s should have no stage, got %v", id, *lead.StageID)
		}
	}

	var untouched models.Lead
	db.First(&untouched, "id = ?", c.ID)
	if untouched.StageID == nil || *untouched.StageID != keep.ID {
		t.Error("lead in another stage must keep its stage")
	}

	var count int64
	db.Model(&models.PipelineStage{}).Where("id = ?", stage.ID).Count(&count)
	if count != 0 {
		t.Error("stage should be gone")
	}
}

func TestReorderStages(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")
	first := seedStage(t, db, tenant.ID, "First", 1, false)
	second := seedStage(t, db, tenant.ID, "Second", 2, false)
	third := seedStage(t, db, tenant.ID, "Third", 3, false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/stages/reorder",
		map[string]interface{}{"ordered_ids": []string{third.ID, first.ID, second.ID}},
		authHeader(t, tenant))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	want := map[string]int{third.ID: 1, first.ID: 2, second.ID: 3}
	for id, pos := range want {
		var stage models.PipelineStage
		db.First(&stage, "id = ?", id)
		if stage.Position != pos {
			t.Errorf("stage %s: expected position %d, got %d", stage.Name, pos, stage.Position)
		}
	}
}

func TestReorderStagesRejectsForeignIDs(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")
	other := seedTenant(t, db, "solon")
	mine := seedStage(t, db, tenant.ID, "Mine", 1, false)
	theirs := seedStage(t, db, other.ID, "Theirs", 1, false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/stages/reorder",
		map[string]interface{}{"ordered_ids": []string{theirs.ID, mine.ID}},
		authHeader(t, tenant))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign stage id, got %d", resp.StatusCode)
	}

	var check models.PipelineStage
	db.First(&check, "id = ?", mine.ID)
	if check.Position != 1 {
		t.Errorf("rejected batch must not move stages, got position %d", check.Position)
	}
}

func TestUpdateStagePartial(t *testing.T) {
	app, db := setupTestApp(t)
	tenant := seedTenant(t, db, "advai")
	stage := seedStage(t, db, tenant.ID, "Old Name", 1, false)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/stages/"+stage.ID,
		map[string]interface{}{"name": "New Name", "is_default": true},
		authHeader(t, tenant))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var updated models.PipelineStage
	db.First(&updated, "id = ?", stage.ID)
	if updated.Name != "New Name" || !updated.IsDefault {
		t.Errorf("partial update not applied: %+v", updated)
	}
	if updated.Position != 1 {
		t.Errorf("untouched position must stay, got %d", updated.Position)
	}
}

func TestStageOperationsAreTenantScoped(t *testing.T) {
	app, db := setupTestApp(t)
	owner := seedTenant(t, db, "advai")
	intruder := seedTenant(t, db, "solon")
	stage := seedStage(t, db, owner.ID, "Private", 1, false)
	headers := authHeader(t, intruder)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/stages/"+stage.ID,
		map[string]interface{}{"name": "Hijacked"}, headers)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant stage update: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/stages/"+stage.ID, nil, headers)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant stage delete: expected 404, got %d", resp.StatusCode)
	}

	var check models.PipelineStage
	if err := db.First(&check, "id = ?", stage.ID).Error; err != nil {
		t.Fatal("stage must survive:", err)
	}
	if check.Name != "Private" {
		t.Error("stage must be unchanged")
	}
}
