package snmp

// ParseIntSNMPValue extracts an int64 from the numeric types gosnmp
// returns for INTEGER, Gauge32 and Counter values.
func ParseIntSNMPValue(value interface{}) (int64, bool) {
	if value == nil {
		return 0, false
	}

	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true //nolint:gosec // severity values are small
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true //nolint:gosec // severity values are small
	default:
		return 0, false
	}
}
