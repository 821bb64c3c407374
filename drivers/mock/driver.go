package mock

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nanoncore/nano-ucsm/types"
)

// Domain simulates the object store of a UCS domain. Every Driver dialed
// from the same Domain sees the same objects, so a Domain outlives the
// short sessions the lifecycle engine opens.
type Domain struct {
	mu         sync.Mutex
	objects    map[string]*entry
	seq        int
	cmdHistory []string

	loginErr    error
	queryErr    error
	commitErr   error
	dropCommits bool
	latency     time.Duration
}

type entry struct {
	mo  *types.ManagedObject
	seq int
}

type change struct {
	op            string
	mo            *types.ManagedObject
	modifyPresent bool
}

// NewDomain creates a simulated domain holding the objects every UCS
// domain has out of the box: org-root, the LAN cloud with VLAN 1 and the
// default MAC pool.
func NewDomain() *Domain {
	d := &Domain{objects: make(map[string]*entry)}
	d.Seed(
		types.NewManagedObject(types.ClassOrg, "", types.DNOrgRoot, map[string]string{"name": "root"}),
		types.NewManagedObject(types.ClassFabricLan, "", types.DNFabricLan, nil),
		types.NewManagedObject(types.ClassFabricVlan, types.DNFabricLan, "net-default", map[string]string{"id": "1", "name": "default"}),
		types.NewManagedObject(types.ClassMacpoolPool, types.DNOrgRoot, "mac-pool-default", map[string]string{"name": "default"}),
	)
	return d
}

// Seed inserts objects (and their children) directly, bypassing sessions
func (d *Domain) Seed(mos ...*types.ManagedObject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, mo := range mos {
		d.insert(d.objects, mo.Clone())
	}
}

// Dial returns a new session handle on the domain. It matches the
// lifecycle engine's dialer signature.
func (d *Domain) Dial(config *types.ControllerConfig) (types.Controller, error) {
	return &Driver{domain: d, config: config}, nil
}

// Get returns a copy of the object at dn, or nil
func (d *Domain) Get(dn string) *types.ManagedObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.objects[dn]; ok {
		return e.mo.Clone()
	}
	return nil
}

// Objects returns copies of every object of a class in insertion order
func (d *Domain) Objects(classID types.ClassID) []*types.ManagedObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query(classID, nil)
}

// FailLogin makes every subsequent login fail with err (nil clears it)
func (d *Domain) FailLogin(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loginErr = err
}

// FailQueries makes every subsequent query fail with err (nil clears it)
func (d *Domain) FailQueries(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryErr = err
}

// FailCommits makes every subsequent commit fail with err (nil clears it)
func (d *Domain) FailCommits(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commitErr = err
}

// DropCommits makes commits acknowledge without applying anything
func (d *Domain) DropCommits(drop bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropCommits = drop
}

// SetLatency delays every controller call, honouring context cancellation
func (d *Domain) SetLatency(latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
}

// GetCommandHistory returns the command history (useful for testing)
func (d *Domain) GetCommandHistory() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	history := make([]string, len(d.cmdHistory))
	copy(history, d.cmdHistory)
	return history
}

// CountCommands returns how many history entries start with prefix
func (d *Domain) CountCommands(prefix string) int {
	n := 0
	for _, cmd := range d.GetCommandHistory() {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// Driver implements a mock controller session on a Domain
type Driver struct {
	domain    *Domain
	config    *types.ControllerConfig
	mu        sync.Mutex
	connected bool
	pending   []change
}

// NewDriver creates a mock driver on a fresh domain
func NewDriver(config *types.ControllerConfig) (types.Controller, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return NewDomain().Dial(config)
}

// Login simulates aaaLogin
func (d *Driver) Login(ctx context.Context) error {
	if err := d.domain.wait(ctx); err != nil {
		return &types.TransportError{Op: "aaaLogin", Err: err}
	}

	d.domain.mu.Lock()
	loginErr := d.domain.loginErr
	if loginErr != nil {
		d.domain.recordCommand("failed login")
	} else {
		d.domain.recordCommand("login")
	}
	d.domain.mu.Unlock()

	if loginErr != nil {
		return loginErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

// Logout simulates aaaLogout; pending changes are discarded
func (d *Driver) Logout(ctx context.Context) error {
	d.mu.Lock()
	wasConnected := d.connected
	d.connected = false
	d.pending = nil
	d.mu.Unlock()

	if wasConnected {
		d.domain.mu.Lock()
		d.domain.recordCommand("logout")
		d.domain.mu.Unlock()
	}
	return nil
}

// IsConnected returns connection status
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// QueryDN simulates configResolveDn
func (d *Driver) QueryDN(ctx context.Context, dn string) (*types.ManagedObject, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}

	d.domain.mu.Lock()
	defer d.domain.mu.Unlock()

	d.domain.recordCommand("resolveDn " + dn)
	if d.domain.queryErr != nil {
		return nil, d.domain.queryErr
	}
	if e, ok := d.domain.objects[dn]; ok {
		return e.mo.Clone(), nil
	}
	return nil, nil
}

// QueryClass simulates configResolveClass with an ANDed inFilter
func (d *Driver) QueryClass(ctx context.Context, classID types.ClassID, filters ...types.Filter) ([]*types.ManagedObject, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}

	matchers, err := compileFilters(filters)
	if err != nil {
		return nil, &types.ProtocolError{Op: "configResolveClass", Code: "102", Description: err.Error()}
	}

	d.domain.mu.Lock()
	defer d.domain.mu.Unlock()

	d.domain.recordCommand("resolveClass " + string(classID))
	if d.domain.queryErr != nil {
		return nil, d.domain.queryErr
	}
	return d.domain.query(classID, matchers), nil
}

// AddMO stages a create
func (d *Driver) AddMO(mo *types.ManagedObject, modifyPresent bool) error {
	return d.stage("add", mo, modifyPresent)
}

// ModifyMO stages a modify
func (d *Driver) ModifyMO(mo *types.ManagedObject) error {
	return d.stage("modify", mo, false)
}

// RemoveMO stages a delete
func (d *Driver) RemoveMO(mo *types.ManagedObject) error {
	return d.stage("remove", mo, false)
}

// Commit applies every staged change atomically: either all apply or none
func (d *Driver) Commit(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	d.domain.mu.Lock()
	defer d.domain.mu.Unlock()

	for _, c := range pending {
		d.domain.recordCommand(fmt.Sprintf("commit %s %s", c.op, c.mo.DN))
	}
	if d.domain.commitErr != nil {
		return d.domain.commitErr
	}
	if d.domain.dropCommits {
		return nil
	}

	// Apply on a copy so a failing change leaves the domain untouched
	working := make(map[string]*entry, len(d.domain.objects))
	for dn, e := range d.domain.objects {
		working[dn] = &entry{mo: e.mo.Clone(), seq: e.seq}
	}

	seq := d.domain.seq
	for _, c := range pending {
		if err := d.domain.apply(working, c); err != nil {
			d.domain.seq = seq
			return err
		}
	}
	d.domain.objects = working
	return nil
}

func (d *Driver) stage(op string, mo *types.ManagedObject, modifyPresent bool) error {
	if mo == nil || mo.DN == "" {
		return fmt.Errorf("object with a DN is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return types.ErrNotConnected
	}
	d.pending = append(d.pending, change{op: op, mo: mo.Clone(), modifyPresent: modifyPresent})
	return nil
}

func (d *Driver) ready(ctx context.Context) error {
	if err := d.domain.wait(ctx); err != nil {
		return &types.TransportError{Op: "request", Err: err}
	}
	if !d.IsConnected() {
		return types.ErrNotConnected
	}
	return nil
}

// Helper methods

func (d *Domain) wait(ctx context.Context) error {
	d.mu.Lock()
	latency := d.latency
	d.mu.Unlock()

	if latency == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Domain) recordCommand(cmd string) {
	d.cmdHistory = append(d.cmdHistory, cmd)
}

// insert stores mo and its descendants as flat entries. mo itself is left
// intact so the caller can still walk its children.
func (d *Domain) insert(objects map[string]*entry, mo *types.ManagedObject) {
	if e, ok := objects[mo.DN]; ok {
		for k, v := range mo.Properties {
			e.mo.Set(k, v)
		}
	} else {
		node := &types.ManagedObject{ClassID: mo.ClassID, DN: mo.DN, Properties: make(map[string]string, len(mo.Properties))}
		for k, v := range mo.Properties {
			node.Properties[k] = v
		}
		d.seq++
		objects[mo.DN] = &entry{mo: node, seq: d.seq}
	}
	for _, child := range mo.Children {
		d.insert(objects, child)
	}
}

func (d *Domain) apply(objects map[string]*entry, c change) error {
	switch c.op {
	case "add":
		if _, exists := objects[c.mo.DN]; exists && !c.modifyPresent {
			return &types.ProtocolError{Op: "configConfMos", Code: "103", Description: "can't create; object already exists: " + c.mo.DN}
		}
		if parent := c.mo.ParentDN(); parent != "" {
			if _, ok := objects[parent]; !ok {
				return &types.ProtocolError{Op: "configConfMos", Code: "104", Description: "parent object does not exist: " + parent}
			}
		}
		d.insert(objects, c.mo)
		d.associate(objects, c.mo)
	case "modify":
		e, ok := objects[c.mo.DN]
		if !ok {
			return &types.ProtocolError{Op: "configConfMos", Code: "104", Description: "object does not exist: " + c.mo.DN}
		}
		for k, v := range c.mo.Properties {
			e.mo.Set(k, v)
		}
	case "remove":
		// Removing an absent object is a no-op
		for dn, e := range objects {
			if dn == c.mo.DN || types.IsDescendant(dn, c.mo.DN) {
				d.disassociate(objects, e.mo)
				delete(objects, dn)
			}
		}
	default:
		return fmt.Errorf("unknown change %q", c.op)
	}
	return nil
}

// associate mirrors the controller marking a blade unavailable once a
// service profile is bound to it.
func (d *Domain) associate(objects map[string]*entry, mo *types.ManagedObject) {
	if mo.ClassID == types.ClassLsBinding {
		if blade, ok := objects[mo.Get("pnDn")]; ok {
			types.MarkBladeAssociated(blade.mo)
		}
	}
	for _, child := range mo.Children {
		d.associate(objects, child)
	}
}

func (d *Domain) disassociate(objects map[string]*entry, mo *types.ManagedObject) {
	if mo.ClassID != types.ClassLsBinding {
		return
	}
	if blade, ok := objects[mo.Get("pnDn")]; ok {
		blade.mo.Set("availability", types.BladeAvailable)
		blade.mo.Set("association", types.BladeAssociationNone)
	}
}

type matcher func(mo *types.ManagedObject) bool

func compileFilters(filters []types.Filter) ([]matcher, error) {
	matchers := make([]matcher, 0, len(filters))
	for _, f := range filters {
		f := f
		switch f.Op {
		case types.FilterEq, "":
			matchers = append(matchers, func(mo *types.ManagedObject) bool {
				return mo.Get(f.Property) == f.Value
			})
		case types.FilterWildcard:
			re, err := regexp.Compile(f.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid wcard pattern %q: %w", f.Value, err)
			}
			matchers = append(matchers, func(mo *types.ManagedObject) bool {
				return re.MatchString(mo.Get(f.Property))
			})
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return matchers, nil
}

func (d *Domain) query(classID types.ClassID, matchers []matcher) []*types.ManagedObject {
	var matched []*entry
	for _, e := range d.objects {
		if e.mo.ClassID != classID {
			continue
		}
		ok := true
		for _, m := range matchers {
			if !m(e.mo) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	result := make([]*types.ManagedObject, 0, len(matched))
	for _, e := range matched {
		result = append(result, e.mo.Clone())
	}
	return result
}

// Ensure Driver implements required interfaces
var _ types.Controller = (*Driver)(nil)
