package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Activity type tags. The log is append-only; nothing in the portal updates
// or deletes an activity row.
const (
	ActivityCreation      = "creation"
	ActivityWebhookCreate = "webhook_create"
	ActivityWebhookUpdate = "webhook_update"
	ActivityStageMove     = "stage_move"
	ActivityNote          = "note"
	ActivityAutomation    = "automation"
)

// LeadActivity is one immutable audit entry attached to a lead. UserID is
// nil for system and webhook originated entries.
type LeadActivity struct {
	ID     string  `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID string  `gorm:"type:uuid;not null;index" json:"lead_id"`
	UserID *string `gorm:"type:uuid" json:"user_id"`

	ActivityType string                 `gorm:"not null" json:"activity_type"`
	Description  string                 `gorm:"type:text" json:"description"`
	Metadata     map[string]interface{} `gorm:"serializer:json" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

func (LeadActivity) TableName() string {
	return "lead_activities"
}

func (a *LeadActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// RecordActivity appends one audit entry and reports the storage error, for
// callers whose own success depends on the append (the automation runner).
func RecordActivity(db *gorm.DB, leadID string, userID *string, activityType, description string, metadata map[string]interface{}) error {
	activity := LeadActivity{
		LeadID:       leadID,
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	}
	return db.Create(&activity).Error
}

// TryRecordActivity appends an audit entry on a best-effort basis. Lead
// mutations are authoritative: when the append fails the parent state change
// stands and the audit gap is logged, never propagated.
func TryRecordActivity(db *gorm.DB, leadID string, userID *string, activityType, description string, metadata map[string]interface{}) {
	if err := RecordActivity(db, leadID, userID, activityType, description, metadata); err != nil {
		logrus.WithFields(logrus.Fields{
			"lead_id":       leadID,
			"activity_type": activityType,
			"error":         err.Error(),
		}).Error("failed to append lead activity")
	}
}
