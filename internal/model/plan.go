package model

// Plan is a named pricing entry mapping a coin price to a duration in
// seconds. Provisioned for the pricing catalog; no code path consults it.
type Plan struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:128;not null" json:"name"`
	Description string `gorm:"size:512;not null" json:"description"`
	Price       int    `gorm:"not null" json:"price"`
	Duration    int    `gorm:"not null" json:"duration"`
}
