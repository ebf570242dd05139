// Package kanban holds the board's pure state-transition logic: grouping
// leads into stage buckets, resolving drag-and-drop targets to stage moves,
// and reconciling optimistic board state with store responses. It issues no
// store or network calls of its own.
package kanban

import (
	"advportal/models"
)

// NoStageBucket keys the synthetic bucket for leads without a stage, or
// whose stage id references a stage no longer present.
const NoStageBucket = "no_stage"

// GroupByStage partitions leads into buckets keyed by stage id. Every stage
// gets a bucket even when empty; orphaned leads land in NoStageBucket.
func GroupByStage(stages []models.PipelineStage, leads []models.Lead) map[string][]models.Lead {
	grouped := make(map[string][]models.Lead, len(stages)+1)
	for _, stage := range stages {
		grouped[stage.ID] = []models.Lead{}
	}
	grouped[NoStageBucket] = []models.Lead{}

	for _, lead := range leads {
		if lead.StageID != nil {
			if _, known := grouped[*lead.StageID]; known {
				grouped[*lead.StageID] = append(grouped[*lead.StageID], lead)
				continue
			}
		}
		grouped[NoStageBucket] = append(grouped[NoStageBucket], lead)
	}
	return grouped
}

// ResolveDrop maps a drag-end to a target stage. Priority: the target id is
// a stage, else the target id is another lead (the dragged lead joins its
// stage), else the drop is a no-op and no store command should be issued.
// A target lead without a stage also resolves to a no-op.
func ResolveDrop(stages []models.PipelineStage, leads []models.Lead, draggedID, targetID string) (string, bool) {
	if draggedID == "" || targetID == "" {
		return "", false
	}

	for _, stage := range stages {
		if stage.ID == targetID {
			return stage.ID, true
		}
	}

	for _, lead := range leads {
		if lead.ID == targetID && lead.StageID != nil {
			return *lead.StageID, true
		}
	}

	return "", false
}

// Board is the client-adjacent snapshot of the tenant's pipeline. Moves are
// applied optimistically; Revert restores the last state the store
// confirmed, so the board never keeps showing a state the store rejected.
type Board struct {
	stages    []models.PipelineStage
	leads     []models.Lead
	confirmed []models.Lead
}

func NewBoard(stages []models.PipelineStage, leads []models.Lead) *Board {
	confirmed := make([]models.Lead, len(leads))
	copy(confirmed, leads)
	return &Board{
		stages:    stages,
		leads:     leads,
		confirmed: confirmed,
	}
}

// Groups returns the current (possibly optimistic) grouping.
func (b *Board) Groups() map[string][]models.Lead {
	return GroupByStage(b.stages, b.leads)
}

// ApplyMove optimistically moves a lead to a stage. Returns false when the
// lead is unknown; the caller then issues no store command.
func (b *Board) ApplyMove(leadID, stageID string) bool {
	for i := range b.leads {
		if b.leads[i].ID == leadID {
			b.leads[i].StageID = &stageID
			return true
		}
	}
	return false
}

// Commit acknowledges the store accepted the optimistic state.
func (b *Board) Commit() {
	b.confirmed = make([]models.Lead, len(b.leads))
	copy(b.confirmed, b.leads)
}

// Revert rolls the board back to the last store-confirmed state.
func (b *Board) Revert() {
	b.leads = make([]models.Lead, len(b.confirmed))
	copy(b.leads, b.confirmed)
}
