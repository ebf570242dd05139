package kanban

import (
	"testing"

	"advportal/models"
	"advportal/utils"
)

func testStages() []models.PipelineStage {
	return []models.PipelineStage{
		{ID: "stage-1", TenantID: "t1", Name: "New Lead", Position: 1},
		{ID: "stage-2", TenantID: "t1", Name: "In Conversation", Position: 2},
	}
}

func testLeads() []models.Lead {
	return []models.Lead{
		{ID: "lead-1", TenantID: "t1", Name: "Ana", StageID: utils.Pointer("stage-1")},
		{ID: "lead-2", TenantID: "t1", Name: "Bruno", StageID: utils.Pointer("stage-2")},
		{ID: "lead-3", TenantID: "t1", Name: "Carla"},
		{ID: "lead-4", TenantID: "t1", Name: "Davi", StageID: utils.Pointer("stage-gone")},
	}
}

func TestGroupByStage(t *testing.T) {
	grouped := GroupByStage(testStages(), testLeads())

	if len(grouped["stage-1"]) != 1 || grouped["stage-1"][0].ID != "lead-1" {
		t.Errorf("expected lead-1 in stage-1, got %+v", grouped["stage-1"])
	}
	if len(grouped["stage-2"]) != 1 {
		t.Errorf("expected one lead in stage-2, got %d", len(grouped["stage-2"]))
	}

	// Null stage and dangling stage references both land in the synthetic bucket
	if len(grouped[NoStageBucket]) != 2 {
		t.Fatalf("expected 2 leads in %s, got %d", NoStageBucket, len(grouped[NoStageBucket]))
	}
}

func TestGroupByStageEmptyBuckets(t *testing.T) {
	grouped := GroupByStage(testStages(), nil)
	for _, key := range []string{"stage-1", "stage-2", NoStageBucket} {
		bucket, ok := grouped[key]
		if !ok {
			t.Fatalf("missing bucket %s", key)
		}
		if len(bucket) != 0 {
			t.Errorf("expected empty bucket %s, got %d leads", key, len(bucket))
		}
	}
}

func TestResolveDropOnStage(t *testing.T) {
	stageID, ok := ResolveDrop(testStages(), testLeads(), "lead-1", "stage-2")
	if !ok || stageID != "stage-2" {
		t.Errorf("expected move to stage-2, got %q ok=%v", stageID, ok)
	}
}

func TestResolveDropOnLead(t *testing.T) {
	stageID, ok := ResolveDrop(testStages(), testLeads(), "lead-1", "lead-2")
	if !ok || stageID != "stage-2" {
		t.Errorf("expected move to the target lead's stage, got %q ok=%v", stageID, ok)
	}
}

func TestResolveDropInvalidTargetIsNoOp(t *testing.T) {
	if _, ok := ResolveDrop(testStages(), testLeads(), "lead-1", "not-a-thing"); ok {
		t.Error("expected no-op for unrecognized drop target")
	}
	// A target lead without a stage cannot receive the dragged lead either
	if _, ok := ResolveDrop(testStages(), testLeads(), "lead-1", "lead-3"); ok {
		t.Error("expected no-op for target lead without a stage")
	}
	if _, ok := ResolveDrop(testStages(), testLeads(), "lead-1", ""); ok {
		t.Error("expected no-op for empty target")
	}
}

func TestBoardOptimisticRevert(t *testing.T) {
	board := NewBoard(testStages(), testLeads())

	if !board.ApplyMove("lead-1", "stage-2") {
		t.Fatal("expected ApplyMove to find lead-1")
	}
	if got := len(board.Groups()["stage-2"]); got != 2 {
		t.Fatalf("expected 2 leads in stage-2 after optimistic move, got %d", got)
	}

	// Store rejected the move: the board must return to the confirmed state
	board.Revert()
	grouped := board.Groups()
	if len(grouped["stage-1"]) != 1 || len(grouped["stage-2"]) != 1 {
		t.Errorf("expected reverted grouping, got stage-1=%d stage-2=%d",
			len(grouped["stage-1"]), len(grouped["stage-2"]))
	}
}

func TestBoardCommitKeepsState(t *testing.T) {
	board := NewBoard(testStages(), testLeads())

	board.ApplyMove("lead-1", "stage-2")
	board.Commit()
	board.Revert()

	if got := len(board.Groups()["stage-2"]); got != 2 {
		t.Errorf("expected committed state to survive revert, got %d leads in stage-2", got)
	}

	if board.ApplyMove("missing", "stage-1") {
		t.Error("expected ApplyMove to report unknown lead")
	}
}
