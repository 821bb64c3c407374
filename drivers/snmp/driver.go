package snmp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/nanoncore/nano-ucsm/types"
)

// CISCO-UNIFIED-COMPUTING-FAULT-MIB
const (
	// OIDFaultSeverity is cucsFaultSeverity, one row per active fault
	OIDFaultSeverity = "1.3.6.1.4.1.9.9.719.1.1.1.1.20"
)

// FaultSeverityNames maps the CucsFaultSeverity textual convention to the
// severity strings the XML API reports.
var FaultSeverityNames = map[int64]string{
	0: "cleared",
	1: "info",
	2: "condition",
	3: "warning",
	4: "minor",
	5: "major",
	6: "critical",
}

// walker is the subset of gosnmp.GoSNMP used to read fault rows
type walker interface {
	BulkWalk(rootOid string, walkFn gosnmp.WalkFunc) error
	Walk(rootOid string, walkFn gosnmp.WalkFunc) error
}

// Driver reads fault severities over SNMP.
// Note: SNMP is read-only here; configuration goes through the XML API.
type Driver struct {
	config *types.ControllerConfig
	snmp   *gosnmp.GoSNMP
	walker walker
	bulk   bool
}

// NewDriver creates a new SNMP fault source
func NewDriver(config *types.ControllerConfig) (*Driver, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	// Default SNMP port
	if config.Port == 0 {
		config.Port = 161
	}

	// Default timeout
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Driver{
		config: config,
	}, nil
}

// Connect establishes an SNMP connection
func (d *Driver) Connect(ctx context.Context) error {
	// Get SNMP version from metadata (default v2c)
	version := gosnmp.Version2c
	if v, ok := d.config.Metadata["snmp_version"]; ok {
		switch v {
		case "1":
			version = gosnmp.Version1
		case "2c":
			version = gosnmp.Version2c
		case "3":
			version = gosnmp.Version3
		default:
			return fmt.Errorf("unsupported snmp_version %q", v)
		}
	}

	// Get community string (default: public)
	community := "public"
	if c, ok := d.config.Metadata["snmp_community"]; ok {
		community = c
	}

	port := d.config.Port
	if port < 0 || port > 65535 {
		port = 161 // default SNMP port
	}
	snmpClient := &gosnmp.GoSNMP{
		Target:         d.config.Address,
		Port:           uint16(port), //nolint:gosec // validated above
		Community:      community,
		Version:        version,
		Timeout:        d.config.Timeout,
		Retries:        0,
		MaxRepetitions: 50,
		Context:        ctx,
	}

	// For SNMPv3, set security parameters
	if version == gosnmp.Version3 {
		snmpClient.SecurityModel = gosnmp.UserSecurityModel
		snmpClient.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 d.config.Username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: d.config.Password,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        d.config.Password,
		}
		snmpClient.MsgFlags = gosnmp.AuthPriv
	}

	if err := snmpClient.Connect(); err != nil {
		return &types.TransportError{Op: "snmp connect", Err: err}
	}

	d.snmp = snmpClient
	d.walker = snmpClient
	d.bulk = version != gosnmp.Version1
	return nil
}

// Disconnect closes the SNMP connection
func (d *Driver) Disconnect(ctx context.Context) error {
	d.walker = nil
	if d.snmp != nil && d.snmp.Conn != nil {
		err := d.snmp.Conn.Close()
		d.snmp = nil
		return err
	}
	return nil
}

// IsConnected returns true if connected
func (d *Driver) IsConnected() bool {
	return d.walker != nil
}

// FaultSeverities walks cucsFaultSeverity and returns one severity per row.
// Values outside the textual convention are reported as "unknown(<n>)".
func (d *Driver) FaultSeverities(ctx context.Context) ([]string, error) {
	if !d.IsConnected() {
		return nil, types.ErrNotConnected
	}

	var severities []string
	walkFn := func(pdu gosnmp.SnmpPDU) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasPrefix(strings.TrimPrefix(pdu.Name, "."), OIDFaultSeverity+".") {
			return nil
		}
		value, ok := ParseIntSNMPValue(pdu.Value)
		if !ok {
			return nil
		}
		severities = append(severities, SeverityName(value))
		return nil
	}

	var err error
	if d.bulk {
		err = d.walker.BulkWalk(OIDFaultSeverity, walkFn)
	} else {
		err = d.walker.Walk(OIDFaultSeverity, walkFn)
	}
	if err != nil {
		return nil, &types.TransportError{Op: "snmp walk", Err: err}
	}
	return severities, nil
}

// SeverityName converts a CucsFaultSeverity value
func SeverityName(value int64) string {
	if name, ok := FaultSeverityNames[value]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", value)
}

// Ensure Driver implements FaultSource
var _ types.FaultSource = (*Driver)(nil)
