package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnsureDefaultTenant guarantees the hostname-resolution fallback row exists
// and carries the canonical pipeline. Safe to run on every startup.
func EnsureDefaultTenant(db *gorm.DB) error {
	tenant := Tenant{
		Slug:          DefaultTenantSlug,
		Name:          "AdvAI Portal",
		WebhookSecret: uuid.NewString(),
	}
	if err := db.FirstOrCreate(&tenant, "slug = ?", DefaultTenantSlug).Error; err != nil {
		return err
	}
	return CreateDefaultStages(db, tenant.ID)
}

// CreateDefaultStages seeds the canonical pipeline for a freshly provisioned
// tenant. The first stage is flagged as the landing stage.
func CreateDefaultStages(db *gorm.DB, tenantID string) error {
	defaultStages := []PipelineStage{
		{
			TenantID:  tenantID,
			Name:      "New Lead",
			Position:  1,
			Color:     "#3b82f6",
			IsDefault: true,
		},
		{
			TenantID: tenantID,
			Name:     "In Conversation",
			Position: 2,
			Color:    "#eab308",
		},
		{
			TenantID: tenantID,
			Name:     "Meeting Scheduled",
			Position: 3,
			Color:    "#a855f7",
		},
		{
			TenantID: tenantID,
			Name:     "Closed",
			Position: 4,
			Color:    "#22c55e",
		},
	}
	for _, stage := range defaultStages {
		if err := db.FirstOrCreate(&stage, "tenant_id = ? AND name = ?", tenantID, stage.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
