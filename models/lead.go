package models

import (
	"sort"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead origin tags. Source stays free-form (caller-supplied); Origin records
// which path created the lead.
const (
	OriginManual  = "manual"
	OriginWebhook = "webhook"
	OriginAgent   = "agent"
)

// Lead is a prospective customer tracked through the pipeline. StageID is
// nullable: "no stage" is a valid state rendered as a synthetic bucket.
type Lead struct {
	ID       string  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	StageID  *string `gorm:"type:uuid;index" json:"stage_id"`

	Name  string `gorm:"not null" json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	Source         string  `json:"source"`
	Origin         string  `json:"origin"`
	HandledByAgent bool    `gorm:"default:false" json:"handled_by_agent"`
	InteractionID  *string `gorm:"index" json:"interaction_id"`

	Tags         []string `gorm:"serializer:json" json:"tags"`
	Observations string   `gorm:"type:text" json:"observations"`

	NextContact      *time.Time `json:"next_contact"`
	MeetingScheduled bool       `gorm:"default:false" json:"meeting_scheduled"`
	MeetingDone      bool       `gorm:"default:false" json:"meeting_done"`
	NoShow           bool       `gorm:"default:false" json:"no_show"`

	OpportunityValue float64 `gorm:"default:0" json:"opportunity_value"`

	CustomFields map[string]interface{} `gorm:"serializer:json" json:"custom_fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Origin == "" {
		l.Origin = OriginManual
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.CustomFields == nil {
		l.CustomFields = map[string]interface{}{}
	}
	return nil
}

// FindLeadForTenant loads a lead scoped to a tenant. A lead owned by another
// tenant reports gorm.ErrRecordNotFound, identical to a missing row, so
// existence never leaks across tenants.
func FindLeadForTenant(db *gorm.DB, tenantID, leadID string) (*Lead, error) {
	var lead Lead
	if err := db.Where("id = ? AND tenant_id = ?", leadID, tenantID).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// LeadPatch is the canonical partial-update shape every mutation path
// (interactive edits, CRM webhook updates) normalizes into before touching
// storage. Nil fields are left untouched; a JSON null is treated the same as
// an absent field.
type LeadPatch struct {
	Name             *string                 `json:"name" validate:"omitempty,min=1"`
	Email            *string                 `json:"email"`
	Phone            *string                 `json:"phone"`
	StageID          *string                 `json:"stage_id"`
	Source           *string                 `json:"source"`
	Tags             *[]string               `json:"tags"`
	Observations     *string                 `json:"observations"`
	NextContact      *time.Time              `json:"next_contact"`
	MeetingScheduled *bool                   `json:"meeting_scheduled"`
	MeetingDone      *bool                   `json:"meeting_done"`
	NoShow           *bool                   `json:"no_show"`
	OpportunityValue *float64                `json:"opportunity_value" validate:"omitempty,gte=0"`
	CustomFields     *map[string]interface{} `json:"custom_fields"`
}

// Normalize cleans untrusted payload fields in place: emails are lowercased
// and dropped when malformed (webhook senders are not trusted to validate),
// names and phones are trimmed.
func (p *LeadPatch) Normalize() {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
	if p.Phone != nil {
		trimmed := strings.TrimSpace(*p.Phone)
		p.Phone = &trimmed
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if checkmail.ValidateFormat(email) != nil {
			p.Email = nil
		} else {
			p.Email = &email
		}
	}
}

// Changes returns the gorm column map for the fields present in the patch.
func (p *LeadPatch) Changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if p.Name != nil {
		changes["name"] = *p.Name
	}
	if p.Email != nil {
		changes["email"] = *p.Email
	}
	if p.Phone != nil {
		changes["phone"] = *p.Phone
	}
	if p.StageID != nil {
		changes["stage_id"] = *p.StageID
	}
	if p.Source != nil {
		changes["source"] = *p.Source
	}
	if p.Tags != nil {
		changes["tags"] = *p.Tags
	}
	if p.Observations != nil {
		changes["observations"] = *p.Observations
	}
	if p.NextContact != nil {
		changes["next_contact"] = *p.NextContact
	}
	if p.MeetingScheduled != nil {
		changes["meeting_scheduled"] = *p.MeetingScheduled
	}
	if p.MeetingDone != nil {
		changes["meeting_done"] = *p.MeetingDone
	}
	if p.NoShow != nil {
		changes["no_show"] = *p.NoShow
	}
	if p.OpportunityValue != nil {
		changes["opportunity_value"] = *p.OpportunityValue
	}
	if p.CustomFields != nil {
		changes["custom_fields"] = *p.CustomFields
	}
	return changes
}

// FieldNames lists the patched column names, sorted, for audit metadata.
func (p *LeadPatch) FieldNames() []string {
	changes := p.Changes()
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyLeadPatch applies a patch to a tenant-scoped lead and returns the
// updated row. UpdatedAt always advances, even for an empty patch.
func ApplyLeadPatch(db *gorm.DB, tenantID, leadID string, patch *LeadPatch) (*Lead, error) {
	lead, err := FindLeadForTenant(db, tenantID, leadID)
	if err != nil {
		return nil, err
	}

	changes := patch.Changes()
	changes["updated_at"] = time.Now()
	if err := db.Model(lead).Updates(changes).Error; err != nil {
		return nil, err
	}
	return lead, nil
}
