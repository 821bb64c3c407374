package types

import (
	"net"
	"strconv"
	"time"
)

// Protocol represents the southbound protocol used to reach the controller
type Protocol string

const (
	ProtocolXMLAPI Protocol = "xmlapi"
	ProtocolSNMP   Protocol = "snmp"
	ProtocolCLI    Protocol = "cli"
	ProtocolMock   Protocol = "mock" // For testing/simulation
)

// ControllerConfig contains configuration for a management controller instance
type ControllerConfig struct {
	// Name is a unique identifier for this controller
	Name string

	// Address is the management IP/hostname (UCS Manager cluster VIP)
	Address string

	// Port is the management port (if not default)
	Port int

	// Protocol is the management protocol
	Protocol Protocol

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// TLSEnabled selects https for the XML API
	TLSEnabled bool

	// TLSSkipVerify skips TLS certificate verification (insecure, for testing)
	TLSSkipVerify bool

	// Timeout for operations
	Timeout time.Duration

	// Metadata contains protocol-specific configuration
	// (snmp_version, snmp_community, cli_prompt)
	Metadata map[string]string
}

// Endpoint returns the host:port the driver should dial.
func (c *ControllerConfig) Endpoint(defaultPort int) string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(c.Address, strconv.Itoa(port))
}
