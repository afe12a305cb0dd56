package models

// Event is the minimal event record the staff subsystem resolves against.
type Event struct {
	BaseModel

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name    string `gorm:"not null" json:"name"`

	Owner  *User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Booths []Booth `gorm:"constraint:OnDelete:CASCADE" json:"booths,omitempty"`
}
