package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTenantSlug is the catch-all tenant used when a hostname matches
// nothing. It must exist in the tenants table (seeded at provisioning).
const DefaultTenantSlug = "default"

// Tenant is the isolation boundary of the portal. Every lead, stage and
// automation row carries a tenant id and every query must filter by it.
type Tenant struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`

	// Domain is the branded hostname this tenant is served under.
	Domain string `gorm:"index" json:"domain"`

	// WebhookSecret authenticates inbound CRM webhooks. Unique across tenants.
	WebhookSecret string `gorm:"uniqueIndex;not null" json:"-"`

	// AgentID correlates inbound agent webhooks to this tenant.
	AgentID string `gorm:"index" json:"agent_id"`

	// KPIAPIToken authorizes the per-tenant spreadsheet backend used by the
	// KPI dashboard proxy.
	KPIAPIToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// FindTenantBySecret resolves the tenant owning a webhook secret.
// Returns gorm.ErrRecordNotFound for unknown or empty secrets.
func FindTenantBySecret(db *gorm.DB, secret string) (*Tenant, error) {
	if secret == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var tenant Tenant
	if err := db.Where("webhook_secret = ?", secret).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindTenantByAgentID resolves the tenant registered for an external
// conversational agent.
func FindTenantByAgentID(db *gorm.DB, agentID string) (*Tenant, error) {
	if agentID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var tenant Tenant
	if err := db.Where("agent_id = ?", agentID).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindTenantByHost maps a browser hostname to a tenant. Resolution order:
// slug substring match against the hostname, exact domain match, then the
// default tenant. Only a missing default row surfaces an error.
func FindTenantByHost(db *gorm.DB, host string) (*Tenant, error) {
	// Strip port for local development
	hostname := host
	if idx := strings.Index(hostname, ":"); idx != -1 {
		hostname = hostname[:idx]
	}

	var tenants []Tenant
	if err := db.Find(&tenants).Error; err != nil {
		return nil, err
	}

	for i := range tenants {
		if tenants[i].Slug != DefaultTenantSlug && strings.Contains(hostname, tenants[i].Slug) {
			return &tenants[i], nil
		}
	}
	for i := range tenants {
		if tenants[i].Domain != "" && tenants[i].Domain == hostname {
			return &tenants[i], nil
		}
	}
	for i := range tenants {
		if tenants[i].Slug == DefaultTenantSlug {
			return &tenants[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
