package types

import (
	"sort"
	"strings"
)

// ClassID is a controller object class
type ClassID string

const (
	ClassFabricVlan   ClassID = "fabricVlan"
	ClassFabricLan    ClassID = "fabricLanCloud"
	ClassOrg          ClassID = "orgOrg"
	ClassMacpoolPool  ClassID = "macpoolPool"
	ClassMacpoolBlock ClassID = "macpoolBlock"
	ClassLsServer     ClassID = "lsServer"
	ClassLsBinding    ClassID = "lsBinding"
	ClassComputeBlade ClassID = "computeBlade"
	ClassFaultInst    ClassID = "faultInst"
)

// Well-known distinguished names
const (
	DNFabricLan      = "fabric/lan"
	DNOrgRoot        = "org-root"
	DNMacPoolDefault = "org-root/mac-pool-default"
)

// Service profile types
const (
	ProfileTypeInstance        = "instance"
	ProfileTypeInitialTemplate = "initial-template"
)

// Blade states that qualify for provisioning
const (
	BladeAdminInService    = "in-service"
	BladeAvailable         = "available"
	BladeUnavailable       = "unavailable"
	BladeAssociated        = "associated"
	BladeAssociationNone   = "none"
	bladeAssociationAttr   = "association"
	bladeAvailabilityAttr  = "availability"
	bladeAdminStateAttr    = "adminState"
	bladeChassisIDAttr     = "chassisId"
	bladeSlotIDAttr        = "slotId"
	profileSrcTemplateAttr = "srcTemplName"
)

// ManagedObject is a generic controller object: a class, a distinguished
// name, string properties and contained children.
type ManagedObject struct {
	ClassID    ClassID
	DN         string
	Properties map[string]string
	Children   []*ManagedObject
}

// NewManagedObject creates an object at parentDN/rn
func NewManagedObject(classID ClassID, parentDN, rn string, props map[string]string) *ManagedObject {
	if props == nil {
		props = make(map[string]string)
	}
	dn := rn
	if parentDN != "" {
		dn = parentDN + "/" + rn
	}
	return &ManagedObject{ClassID: classID, DN: dn, Properties: props}
}

// Get returns a property value, or "" when unset
func (mo *ManagedObject) Get(name string) string {
	if mo == nil || mo.Properties == nil {
		return ""
	}
	return mo.Properties[name]
}

// Set assigns a property value
func (mo *ManagedObject) Set(name, value string) {
	if mo.Properties == nil {
		mo.Properties = make(map[string]string)
	}
	mo.Properties[name] = value
}

// RN returns the relative name (last DN component)
func (mo *ManagedObject) RN() string {
	if i := strings.LastIndex(mo.DN, "/"); i >= 0 {
		return mo.DN[i+1:]
	}
	return mo.DN
}

// ParentDN returns the DN of the containing object
func (mo *ManagedObject) ParentDN() string {
	return ParentDN(mo.DN)
}

// AddChild attaches a child with the given rn and returns it
func (mo *ManagedObject) AddChild(classID ClassID, rn string, props map[string]string) *ManagedObject {
	child := NewManagedObject(classID, mo.DN, rn, props)
	mo.Children = append(mo.Children, child)
	return child
}

// Clone returns a deep copy
func (mo *ManagedObject) Clone() *ManagedObject {
	if mo == nil {
		return nil
	}
	c := &ManagedObject{
		ClassID:    mo.ClassID,
		DN:         mo.DN,
		Properties: make(map[string]string, len(mo.Properties)),
	}
	for k, v := range mo.Properties {
		c.Properties[k] = v
	}
	for _, child := range mo.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// PropertyNames returns property names in stable order
func (mo *ManagedObject) PropertyNames() []string {
	names := make([]string, 0, len(mo.Properties))
	for k := range mo.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParentDN returns the DN of the object containing dn
func ParentDN(dn string) string {
	if i := strings.LastIndex(dn, "/"); i >= 0 {
		return dn[:i]
	}
	return ""
}

// IsDescendant reports whether dn lies strictly under ancestor
func IsDescendant(dn, ancestor string) bool {
	return strings.HasPrefix(dn, ancestor+"/")
}

// VlanDN returns the DN of the fabric VLAN with the given name
func VlanDN(name string) string {
	return DNFabricLan + "/net-" + name
}

// OrgDN returns the DN of a sub-organization of org-root
func OrgDN(name string) string {
	return DNOrgRoot + "/org-" + name
}

// ProfileDN returns the DN of a service profile under an organization
func ProfileDN(orgDN, name string) string {
	return orgDN + "/ls-" + name
}

// NewFabricVlan builds a fabricVlan under fabric/lan
func NewFabricVlan(id, name string) *ManagedObject {
	return NewManagedObject(ClassFabricVlan, DNFabricLan, "net-"+name, map[string]string{
		"id":   id,
		"name": name,
	})
}

// NewOrg builds an orgOrg under parentDN
func NewOrg(parentDN, name string) *ManagedObject {
	return NewManagedObject(ClassOrg, parentDN, "org-"+name, map[string]string{
		"name": name,
	})
}

// NewMacpoolBlock builds a macpoolBlock under the given pool
func NewMacpoolBlock(poolDN, from, to string) *ManagedObject {
	return NewManagedObject(ClassMacpoolBlock, poolDN, "block-"+from+"-"+to, map[string]string{
		"from": from,
		"to":   to,
	})
}

// NewServiceProfileTemplate builds an initial-template lsServer
func NewServiceProfileTemplate(orgDN, name string) *ManagedObject {
	return NewManagedObject(ClassLsServer, orgDN, "ls-"+name, map[string]string{
		"name": name,
		"type": ProfileTypeInitialTemplate,
	})
}

// NewServiceProfile builds an instance lsServer derived from a template
// and bound to the blade at bladeDN.
func NewServiceProfile(orgDN, name, templateName, bladeDN string) *ManagedObject {
	mo := NewManagedObject(ClassLsServer, orgDN, "ls-"+name, map[string]string{
		"name":                 name,
		"type":                 ProfileTypeInstance,
		profileSrcTemplateAttr: templateName,
	})
	mo.AddChild(ClassLsBinding, "pn", map[string]string{"pnDn": bladeDN})
	return mo
}

// Blade is the typed view of a computeBlade
type Blade struct {
	DN           string
	AdminState   string
	Availability string
	Association  string
	ChassisID    string
	SlotID       string
}

// BladeFromMO converts a computeBlade object
func BladeFromMO(mo *ManagedObject) Blade {
	return Blade{
		DN:           mo.DN,
		AdminState:   mo.Get(bladeAdminStateAttr),
		Availability: mo.Get(bladeAvailabilityAttr),
		Association:  mo.Get(bladeAssociationAttr),
		ChassisID:    mo.Get(bladeChassisIDAttr),
		SlotID:       mo.Get(bladeSlotIDAttr),
	}
}

// Qualifies reports whether the blade can take a new service profile
func (b Blade) Qualifies() bool {
	return b.AdminState == BladeAdminInService && b.Availability == BladeAvailable
}

// NewComputeBlade builds a computeBlade object, mostly for simulators
func NewComputeBlade(chassisID, slotID, adminState, availability string) *ManagedObject {
	return NewManagedObject(ClassComputeBlade, "sys/chassis-"+chassisID, "blade-"+slotID, map[string]string{
		bladeChassisIDAttr:    chassisID,
		bladeSlotIDAttr:       slotID,
		bladeAdminStateAttr:   adminState,
		bladeAvailabilityAttr: availability,
		bladeAssociationAttr:  BladeAssociationNone,
	})
}

// MarkBladeAssociated applies the controller-side effect of binding a
// service profile to a blade.
func MarkBladeAssociated(mo *ManagedObject) {
	mo.Set(bladeAvailabilityAttr, BladeUnavailable)
	mo.Set(bladeAssociationAttr, BladeAssociated)
}

// NewFaultInst builds a faultInst object, mostly for simulators
func NewFaultInst(id, severity string) *ManagedObject {
	return NewManagedObject(ClassFaultInst, "sys", "fault-"+id, map[string]string{
		"id":       id,
		"severity": severity,
	})
}
