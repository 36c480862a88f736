package model

import "time"

// CoinTransaction records a single coin insertion credited to a device.
// The table is provisioned for the payment integration; nothing in the
// accounting core reads or writes it.
type CoinTransaction struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	MACAddress string    `gorm:"column:mac_address;index;not null" json:"mac_address"`
	CoinValue  int       `gorm:"not null" json:"coin_value"`
	Timestamp  time.Time `gorm:"not null;autoCreateTime" json:"timestamp"`
}
