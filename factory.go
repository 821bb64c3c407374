package southbound

import (
	"fmt"
	"sort"

	"github.com/nanoncore/nano-ucsm/drivers/cli"
	"github.com/nanoncore/nano-ucsm/drivers/mock"
	"github.com/nanoncore/nano-ucsm/drivers/snmp"
	"github.com/nanoncore/nano-ucsm/drivers/xmlapi"
)

// CapabilityMatrix defines what each protocol can be used for
var CapabilityMatrix = map[Protocol]ProtocolCapabilities{
	ProtocolXMLAPI: {
		DefaultPort: 443,
		PlainPort:   80,
		Controller:  true,
		FaultSource: false,
	},
	ProtocolSNMP: {
		DefaultPort: 161,
		Controller:  false,
		FaultSource: true,
	},
	ProtocolCLI: {
		DefaultPort: 22,
		Controller:  false,
		FaultSource: true,
	},
	ProtocolMock: {
		Controller:  true,
		FaultSource: false,
	},
}

// ProtocolCapabilities defines what a protocol driver supports
type ProtocolCapabilities struct {
	// DefaultPort is filled in by the factory when ControllerConfig.Port
	// is unset
	DefaultPort int

	// PlainPort replaces DefaultPort when TLS is disabled
	PlainPort int

	// Controller drivers implement the full object-store contract
	Controller bool

	// FaultSource drivers can only read fault severities
	FaultSource bool
}

// withDefaultPort returns config with Port taken from caps when unset.
// The caller's config is not modified.
func withDefaultPort(config *ControllerConfig, caps ProtocolCapabilities) *ControllerConfig {
	if config == nil || config.Port != 0 || caps.DefaultPort == 0 {
		return config
	}
	cfg := *config
	cfg.Port = caps.DefaultPort
	if !cfg.TLSEnabled && caps.PlainPort != 0 {
		cfg.Port = caps.PlainPort
	}
	return &cfg
}

// NewController creates a controller driver for the given protocol.
// An empty protocol selects the XML API.
func NewController(protocol Protocol, config *ControllerConfig) (Controller, error) {
	if protocol == "" {
		protocol = ProtocolXMLAPI
	}

	caps, ok := CapabilityMatrix[protocol]
	if !ok {
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
	if !caps.Controller {
		return nil, fmt.Errorf("protocol %s cannot manage controller objects", protocol)
	}

	config = withDefaultPort(config, caps)

	var (
		ctrl Controller
		err  error
	)
	switch protocol {
	case ProtocolXMLAPI:
		ctrl, err = xmlapi.NewDriver(config)
	case ProtocolMock:
		ctrl, err = mock.NewDriver(config)
	default:
		return nil, fmt.Errorf("controller driver not implemented: %s", protocol)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", protocol, err)
	}
	return ctrl, nil
}

// NewFaultSource creates a fault reader for the given protocol
func NewFaultSource(protocol Protocol, config *ControllerConfig) (FaultSource, error) {
	caps, ok := CapabilityMatrix[protocol]
	if !ok {
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
	if !caps.FaultSource {
		return nil, fmt.Errorf("protocol %s is not a fault source", protocol)
	}
	config = withDefaultPort(config, caps)

	switch protocol {
	case ProtocolSNMP:
		d, err := snmp.NewDriver(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s driver: %w", protocol, err)
		}
		return d, nil
	case ProtocolCLI:
		d, err := cli.NewDriver(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s driver: %w", protocol, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("fault source not implemented: %s", protocol)
	}
}

// GetSupportedProtocols returns all known protocols in stable order
func GetSupportedProtocols() []Protocol {
	protocols := make([]Protocol, 0, len(CapabilityMatrix))
	for p := range CapabilityMatrix {
		protocols = append(protocols, p)
	}
	sort.Slice(protocols, func(i, j int) bool { return protocols[i] < protocols[j] })
	return protocols
}

// GetProtocolCapabilities returns the capabilities for a protocol
func GetProtocolCapabilities(protocol Protocol) (ProtocolCapabilities, bool) {
	caps, ok := CapabilityMatrix[protocol]
	return caps, ok
}
