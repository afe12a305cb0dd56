package models

// Booth belongs to exactly one event.
type Booth struct {
	BaseModel

	EventID string `gorm:"type:uuid;not null;index" json:"event_id"`
	Name    string `gorm:"not null" json:"name"`
}
