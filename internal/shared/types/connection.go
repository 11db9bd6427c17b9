package types

import (
	"fmt"
	"strconv"
)

// OwnerID identifies the installed application that owns a registration
type OwnerID int64

// String returns the decimal form of the owner ID
func (o OwnerID) String() string {
	return strconv.FormatInt(int64(o), 10)
}

// Hex returns the lowercase hexadecimal form used in storage keys
func (o OwnerID) Hex() string {
	return strconv.FormatInt(int64(o), 16)
}

// ParseOwnerID parses a decimal owner ID
func ParseOwnerID(s string) (OwnerID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid owner id %q: %w", s, err)
	}
	return OwnerID(v), nil
}

// ParseOwnerHex parses the hexadecimal owner form used in storage keys
func ParseOwnerHex(s string) (OwnerID, error) {
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid owner key %q: %w", s, err)
	}
	return OwnerID(v), nil
}

// ConnectionRecord is the persisted unit of a push registration.
// Connection is unique across all owners; Filter is not part of the key.
type ConnectionRecord struct {
	Owner        OwnerID `json:"owner"`
	LaunchTarget string  `json:"target"`
	Connection   string  `json:"connection"`
	Filter       string  `json:"filter"`
}

// ControllerStats contains push registry statistics
type ControllerStats struct {
	LiveReservations int    `json:"live_reservations"`
	Owners           int    `json:"owners"`
	Launches         uint64 `json:"launches"`
	LaunchFailures   uint64 `json:"launch_failures"`
	DroppedSignals   uint64 `json:"dropped_signals"`
}
