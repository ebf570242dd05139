package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Automation type tags understood by the runner. Unknown types still get
// marked executed so a bad record cannot wedge the queue.
const (
	AutomationMeetingReminder = "meeting_reminder"
	AutomationFollowUp        = "follow_up"
	AutomationNextContact     = "next_contact_reminder"
)

// ScheduledAutomation is a deferred, one-shot side effect scheduled against
// a lead. Once Executed flips true the record is terminal; the runner never
// re-fires it.
type ScheduledAutomation struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LeadID   string `gorm:"type:uuid;not null;index" json:"lead_id"`

	AutomationType string                 `gorm:"not null" json:"automation_type"`
	Payload        map[string]interface{} `gorm:"serializer:json" json:"payload"`

	ScheduledFor time.Time  `gorm:"not null;index" json:"scheduled_for"`
	Executed     bool       `gorm:"default:false;index" json:"executed"`
	ExecutedAt   *time.Time `json:"executed_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (ScheduledAutomation) TableName() string {
	return "scheduled_automations"
}

func (a *ScheduledAutomation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// DueAutomations selects up to limit pending records whose schedule has
// elapsed, oldest first.
func DueAutomations(db *gorm.DB, limit int) ([]ScheduledAutomation, error) {
	var automations []ScheduledAutomation
	err := db.Where("executed = ? AND scheduled_for <= ?", false, time.Now()).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&automations).Error
	return automations, err
}

// MarkExecuted flips the record to its terminal state. Called only after the
// side effect succeeded, preserving at-most-one-successful-execution.
func MarkExecuted(db *gorm.DB, automationID string) error {
	now := time.Now()
	return db.Model(&ScheduledAutomation{}).
		Where("id = ? AND executed = ?", automationID, false).
		Updates(map[string]interface{}{
			"executed":    true,
			"executed_at": now,
		}).Error
}
