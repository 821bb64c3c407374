package southbound

// Re-export types from the types sub-package so callers can use
// southbound.Controller, southbound.ControllerConfig, etc.

import (
	"github.com/nanoncore/nano-ucsm/types"
)

// Type aliases
type (
	Protocol         = types.Protocol
	ControllerConfig = types.ControllerConfig
	Controller       = types.Controller
	FaultSource      = types.FaultSource
	ManagedObject    = types.ManagedObject
	ClassID          = types.ClassID
	Filter           = types.Filter
	TransportError   = types.TransportError
	ProtocolError    = types.ProtocolError
)

// Re-export constants
const (
	ProtocolXMLAPI = types.ProtocolXMLAPI
	ProtocolSNMP   = types.ProtocolSNMP
	ProtocolCLI    = types.ProtocolCLI
	ProtocolMock   = types.ProtocolMock
)
