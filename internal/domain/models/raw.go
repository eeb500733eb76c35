package models

import "time"

// RawTick is a single bid/ask quote from the forex ticks table.
// Raw rows are append-only; the engine never mutates them.
type RawTick struct {
	Pair      string
	Timestamp time.Time
	Bid       float64
	Ask       float64
	Spread    float64
}

// Mid returns the mid price of the tick.
func (t RawTick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// UsageEvent is one raw data-usage record (cdr_data.cdr_data).
type UsageEvent struct {
	MSISDN    string
	TowerID   int
	UpBytes   int64
	DownBytes int64
	DataType  string
	EventTime time.Time
}

// VoiceEvent is one raw voice call record (cdr_data.cdr_voice).
type VoiceEvent struct {
	MSISDN      string
	TowerID     int
	CallType    string
	DurationSec int64
	StartTime   time.Time
}

// Address is the 1:1 address dimension of an account.
type Address struct {
	StreetAddress string
	City          string
	State         string
	PostalCode    string
	Country       string
}

// Device is one of the 1:N devices registered to an account.
type Device struct {
	DeviceID   int
	DeviceName string
	DeviceType string
	DeviceOS   string
}

// Customer is the flattened account dimension: account joined with its
// address and devices. Phone doubles as the account's MSISDN.
type Customer struct {
	AccountID int
	OwnerName string
	Email     string
	Phone     string
	Address   Address
	Devices   []Device
}
