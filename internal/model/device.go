package model

import "time"

// Device represents a client device identified by its hardware address,
// carrying a prepaid balance of access time in seconds.
type Device struct {
	ID            uint64     `gorm:"primaryKey" json:"-"`
	MACAddress    string     `gorm:"column:mac_address;uniqueIndex;size:64;not null" json:"mac_address"`
	TimeRemaining int64      `gorm:"not null;default:0" json:"time_remaining"`
	LastConnected *time.Time `json:"last_connected"`
	IsActive      bool       `gorm:"not null;default:false" json:"is_active"`
	CreatedAt     time.Time  `json:"-"`
	UpdatedAt     time.Time  `json:"-"`

	// Associations
	Subscriptions []*PushSubscription `gorm:"many2many:subscription_device_mapping;" json:"-"`
}
