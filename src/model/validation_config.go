package model

import (
	"encoding/json"
	"time"
)

// ValidationConfig holds the per-dataset rule settings stored in validation_configs.
// Enabled and ErrorThreshold carry no column defaults so that false and 0 are stored as given.
type ValidationConfig struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DatasetName     string    `gorm:"column:table_name;size:200;uniqueIndex" json:"table_name"`
	RuleParameters  string    `gorm:"column:validation_rules;type:jsonb" json:"validation_rules,omitempty"`
	CheckKinds      string    `gorm:"column:validation_types;type:jsonb" json:"validation_types,omitempty"`
	ErrorThreshold  int       `json:"error_threshold"`
	EmailRecipients string    `gorm:"type:jsonb" json:"email_recipients,omitempty"`
	Enabled         bool      `gorm:"not null" json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ValidationConfig) TableName() string { return "validation_configs" }

// Kinds decodes the check kinds list. Malformed JSON yields nil.
func (c *ValidationConfig) Kinds() []string {
	return decodeStrings(c.CheckKinds)
}

// Recipients decodes the email recipients list.
func (c *ValidationConfig) Recipients() []string {
	return decodeStrings(c.EmailRecipients)
}

// Rules decodes the rule parameters blob. Malformed JSON yields an empty map.
func (c *ValidationConfig) Rules() map[string]interface{} {
	rules := map[string]interface{}{}
	if c.RuleParameters == "" {
		return rules
	}
	if err := json.Unmarshal([]byte(c.RuleParameters), &rules); err != nil {
		return map[string]interface{}{}
	}
	return rules
}

func decodeStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// EncodeStrings is the inverse of the list decoders, used when building configs.
func EncodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}
