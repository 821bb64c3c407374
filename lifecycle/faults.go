package lifecycle

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/types"
)

// Severity is a fault severity as counted by the aggregator
type Severity int

const (
	SeverityOther Severity = iota
	SeverityCritical
	SeverityMajor
	SeverityMinor
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityMajor:
		return "major"
	case SeverityMinor:
		return "minor"
	case SeverityWarning:
		return "warning"
	case SeverityOther:
		return "other"
	default:
		return "other"
	}
}

// ParseSeverity maps a controller severity string. Anything outside the
// four counted severities (info, condition, cleared, ...) is
// SeverityOther.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "major":
		return SeverityMajor
	case "minor":
		return SeverityMinor
	case "warning":
		return SeverityWarning
	default:
		return SeverityOther
	}
}

// Counts is the number of faults per severity
type Counts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Warning  int `json:"warning"`
	Other    int `json:"other"`
}

// Total returns the number of faults counted
func (c Counts) Total() int {
	return c.Critical + c.Major + c.Minor + c.Warning + c.Other
}

// Aggregate buckets severities
func Aggregate(severities []string) Counts {
	var c Counts
	for _, raw := range severities {
		switch ParseSeverity(raw) {
		case SeverityCritical:
			c.Critical++
		case SeverityMajor:
			c.Major++
		case SeverityMinor:
			c.Minor++
		case SeverityWarning:
			c.Warning++
		case SeverityOther:
			c.Other++
		}
	}
	return c
}

// CountFaults reads severities from src and aggregates them. src is
// connected and disconnected by the call.
func CountFaults(ctx context.Context, src types.FaultSource) (Counts, error) {
	return countFaults(ctx, src, zap.NewNop())
}

func countFaults(ctx context.Context, src types.FaultSource, logger *zap.Logger) (Counts, error) {
	if err := src.Connect(ctx); err != nil {
		return Counts{}, newError(KindConnectivity, OpFaults, msgConnectivity, err)
	}
	defer func() {
		if err := src.Disconnect(ctx); err != nil {
			logger.Debug("fault source disconnect failed", zap.Error(err))
		}
	}()

	severities, err := src.FaultSeverities(ctx)
	if err != nil {
		return Counts{}, fatal(OpFaults, "read fault severities", err)
	}
	return Aggregate(severities), nil
}

// FaultCounts counts every fault instance on the controller with a single
// class query.
func (e *Engine) FaultCounts(ctx context.Context) (Counts, Result) {
	var counts Counts
	res := e.run(OpFaults, func(logger *zap.Logger) Result {
		err := e.withSession(ctx, OpFaults, logger, func(ctx context.Context, ctrl types.Controller) error {
			faults, err := ctrl.QueryClass(ctx, types.ClassFaultInst)
			if err != nil {
				return fatal(OpFaults, "query faults", err)
			}

			severities := make([]string, 0, len(faults))
			for _, f := range faults {
				severities = append(severities, f.Get("severity"))
			}
			counts = Aggregate(severities)
			return nil
		})
		if err != nil {
			return failed(OpFaults, err)
		}

		logger.Debug("faults aggregated", zap.Int("total", counts.Total()))
		return succeeded(OpFaults, faultsMessage(counts))
	})
	return counts, res
}

// FaultCountsFrom counts faults through an SNMP or CLI fault source
// instead of the XML API.
func (e *Engine) FaultCountsFrom(ctx context.Context, src types.FaultSource) (Counts, Result) {
	var counts Counts
	res := e.run(OpFaults, func(logger *zap.Logger) Result {
		var err error
		counts, err = countFaults(ctx, src, logger)
		if err != nil {
			return failed(OpFaults, err)
		}
		return succeeded(OpFaults, faultsMessage(counts))
	})
	return counts, res
}
