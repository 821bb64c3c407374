package types

import (
	"fmt"
	"strconv"
	"strings"
)

// VLAN ID ranges accepted by the fabric interconnect.
// 4030-4047 and 4048 are reserved for internal use; 4094-4095 are not
// configurable.
const (
	VLANDefault       = 1
	VLANMaxID         = 4093
	VLANReservedStart = 4030
	VLANReservedEnd   = 4048
)

// VLAN error codes
const (
	ErrCodeVLANReserved     = "VLAN_RESERVED"
	ErrCodeInvalidVLANID    = "INVALID_VLAN_ID"
	ErrCodeVLANNotConfirmed = "VLAN_NOT_CONFIRMED"
)

// VLANName derives the object name for a VLAN id
func VLANName(id int) string {
	return fmt.Sprintf("vlan%d", id)
}

// ParseVLANID parses a VLAN id as received from a caller.
func ParseVLANID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid VLAN id %q: %w", raw, err)
	}
	return id, nil
}

// VLANIDPermitted reports whether id may be created on the fabric:
// 2-4029 and 4049-4093.
func VLANIDPermitted(id int) bool {
	if id <= VLANDefault || id > VLANMaxID {
		return false
	}
	if id >= VLANReservedStart && id <= VLANReservedEnd {
		return false
	}
	return true
}
