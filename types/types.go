package types

import (
	"context"
)

// Controller is the interface that all controller drivers must implement.
// It abstracts the management protocol (XML API, mock) behind the handful of
// object-store primitives the lifecycle engine depends on.
//
// Mutations are staged: AddMO, ModifyMO and RemoveMO only queue a change,
// Commit sends every queued change to the controller in one request.
type Controller interface {
	// Login establishes an authenticated session with the controller
	Login(ctx context.Context) error

	// Logout releases the controller-side session
	Logout(ctx context.Context) error

	// IsConnected returns true if a session is held
	IsConnected() bool

	// QueryDN looks up a single object by distinguished name.
	// Returns nil, nil when the object does not exist.
	QueryDN(ctx context.Context, dn string) (*ManagedObject, error)

	// QueryClass returns every object of a class matching all filters
	QueryClass(ctx context.Context, classID ClassID, filters ...Filter) ([]*ManagedObject, error)

	// AddMO stages a create. With modifyPresent the create also
	// updates an existing object instead of failing.
	AddMO(mo *ManagedObject, modifyPresent bool) error

	// ModifyMO stages a property update of an existing object
	ModifyMO(mo *ManagedObject) error

	// RemoveMO stages a delete; children are removed with their parent
	RemoveMO(mo *ManagedObject) error

	// Commit sends all staged changes
	Commit(ctx context.Context) error
}

// FaultSource is implemented by drivers that can read fault severities
// without the object-store session (SNMP, CLI).
type FaultSource interface {
	// Connect opens the underlying transport
	Connect(ctx context.Context) error

	// Disconnect closes the underlying transport
	Disconnect(ctx context.Context) error

	// FaultSeverities returns the severity of every fault instance
	FaultSeverities(ctx context.Context) ([]string, error)
}

// FilterOp is an inFilter operator
type FilterOp string

const (
	// FilterEq matches a property value exactly
	FilterEq FilterOp = "eq"
	// FilterWildcard matches a property against a regular expression
	FilterWildcard FilterOp = "wcard"
)

// Filter restricts a class query to objects whose property matches Value
type Filter struct {
	Property string
	Op       FilterOp
	Value    string
}

// Eq builds an exact-match filter
func Eq(property, value string) Filter {
	return Filter{Property: property, Op: FilterEq, Value: value}
}

// Wildcard builds a regular-expression filter
func Wildcard(property, pattern string) Filter {
	return Filter{Property: property, Op: FilterWildcard, Value: pattern}
}
