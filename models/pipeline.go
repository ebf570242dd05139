package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultStageColor is applied when a stage is created without a color.
const DefaultStageColor = "#6b7280"

// PipelineStage is a named, ordered bucket of the sales pipeline. Positions
// define left-to-right display order; they are not necessarily contiguous,
// ties break by insertion order.
type PipelineStage struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name     string `gorm:"not null" json:"name"`
	Position int    `gorm:"not null" json:"position"`
	Color    string `json:"color"`

	// IsDefault marks the landing stage for new leads when the caller did
	// not pick one. At most one stage per tenant should carry the flag.
	IsDefault bool `gorm:"default:false" json:"is_default"`

	CreatedAt time.Time `json:"created_at"`
}

func (PipelineStage) TableName() string {
	return "pipeline_stages"
}

func (s *PipelineStage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Color == "" {
		s.Color = DefaultStageColor
	}
	return nil
}

// LandingStage returns the stage new leads land on: the flagged default
// stage, else the lowest-position stage. Returns nil without error when the
// tenant has no stages at all.
func LandingStage(db *gorm.DB, tenantID string) (*PipelineStage, error) {
	var stage PipelineStage
	err := db.Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Order("position ASC").
		First(&stage).Error
	if err == nil {
		return &stage, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = db.Where("tenant_id = ?", tenantID).
		Order("position ASC").
		First(&stage).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// NextStagePosition returns max(position)+1 within the tenant.
func NextStagePosition(db *gorm.DB, tenantID string) (int, error) {
	var max int
	err := db.Model(&PipelineStage{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// DeleteStage removes a stage after reassigning its leads to the null stage.
// Both steps run in a single transaction so readers never observe leads
// pointing at a deleted stage.
func DeleteStage(db *gorm.DB, tenantID, stageID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var stage PipelineStage
		if err := tx.Where("id = ? AND tenant_id = ?", stageID, tenantID).First(&stage).Error; err != nil {
			return err
		}
		if err := tx.Model(&Lead{}).
			Where("tenant_id = ? AND stage_id = ?", tenantID, stageID).
			Update("stage_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&stage).Error
	})
}

// ReorderStages assigns position = index+1 for each id, in one transaction.
// Any id not owned by the tenant rejects the whole batch.
func ReorderStages(db *gorm.DB, tenantID string, orderedIDs []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for idx, id := range orderedIDs {
			result := tx.Model(&PipelineStage{}).
				Where("id = ? AND tenant_id = ?", id, tenantID).
				Update("position", idx+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
