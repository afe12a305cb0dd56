package models

// StaffPermission grants one ticket access to one booth.
type StaffPermission struct {
	BaseModel

	StaffTicketID string `gorm:"type:uuid;not null;uniqueIndex:idx_staff_permission_ticket_booth,priority:1" json:"staff_tickets_id"`
	BoothID       string `gorm:"type:uuid;not null;uniqueIndex:idx_staff_permission_ticket_booth,priority:2;index" json:"booth"`

	Booth *Booth `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the historical table name.
func (StaffPermission) TableName() string { return "staff_permissions" }
