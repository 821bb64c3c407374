package xmlapi

import (
	"encoding/xml"

	"github.com/nanoncore/nano-ucsm/types"
)

// XML API method names
const (
	MethodLogin         = "aaaLogin"
	MethodLogout        = "aaaLogout"
	MethodResolveDn     = "configResolveDn"
	MethodResolveClass  = "configResolveClass"
	MethodConfigConfMos = "configConfMos"
)

// Object status values sent with configConfMos
const (
	StatusCreated         = "created"
	StatusCreatedModified = "created,modified"
	StatusModified        = "modified"
	StatusDeleted         = "deleted"
)

type aaaLogin struct {
	XMLName    xml.Name `xml:"aaaLogin"`
	InName     string   `xml:"inName,attr"`
	InPassword string   `xml:"inPassword,attr"`
}

type aaaLogout struct {
	XMLName  xml.Name `xml:"aaaLogout"`
	InCookie string   `xml:"inCookie,attr"`
}

type configResolveDn struct {
	XMLName        xml.Name `xml:"configResolveDn"`
	Cookie         string   `xml:"cookie,attr"`
	Dn             string   `xml:"dn,attr"`
	InHierarchical string   `xml:"inHierarchical,attr"`
}

type configResolveClass struct {
	XMLName        xml.Name  `xml:"configResolveClass"`
	Cookie         string    `xml:"cookie,attr"`
	ClassID        string    `xml:"classId,attr"`
	InHierarchical string    `xml:"inHierarchical,attr"`
	InFilter       *inFilter `xml:"inFilter,omitempty"`
}

type inFilter struct {
	Items []element `xml:",any"`
}

type configConfMos struct {
	XMLName        xml.Name  `xml:"configConfMos"`
	Cookie         string    `xml:"cookie,attr"`
	InHierarchical string    `xml:"inHierarchical,attr"`
	InConfigs      inConfigs `xml:"inConfigs"`
}

type inConfigs struct {
	Pairs []pair `xml:"pair"`
}

type pair struct {
	Key string  `xml:"key,attr"`
	MO  element `xml:",any"`
}

// response covers every method answer and the bare <error> document
type response struct {
	XMLName          xml.Name
	Cookie           string      `xml:"cookie,attr"`
	Response         string      `xml:"response,attr"`
	ErrorCode        string      `xml:"errorCode,attr"`
	InvocationResult string      `xml:"invocationResult,attr"`
	ErrorDescr       string      `xml:"errorDescr,attr"`
	OutCookie        string      `xml:"outCookie,attr"`
	OutRefreshPeriod string      `xml:"outRefreshPeriod,attr"`
	OutConfig        *outConfigs `xml:"outConfig"`
	OutConfigs       *outConfigs `xml:"outConfigs"`
}

type outConfigs struct {
	Items []element `xml:",any"`
}

// objects returns the managed objects carried by either payload form
func (r *response) objects() []*types.ManagedObject {
	var items []element
	if r.OutConfig != nil {
		items = append(items, r.OutConfig.Items...)
	}
	if r.OutConfigs != nil {
		items = append(items, r.OutConfigs.Items...)
	}

	mos := make([]*types.ManagedObject, 0, len(items))
	for _, item := range items {
		mos = append(mos, item.toMO(""))
	}
	return mos
}

// element is a generic XML API object: the tag is the class id and the
// attributes are its properties.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// toMO converts an element. Children in hierarchical answers carry only
// an rn, so their DN is derived from the parent.
func (e element) toMO(parentDN string) *types.ManagedObject {
	mo := &types.ManagedObject{
		ClassID:    types.ClassID(e.XMLName.Local),
		Properties: make(map[string]string, len(e.Attrs)),
	}
	for _, a := range e.Attrs {
		switch a.Name.Local {
		case "dn":
			mo.DN = a.Value
		case "status", "childAction":
		default:
			mo.Properties[a.Name.Local] = a.Value
		}
	}
	if mo.DN == "" && parentDN != "" {
		mo.DN = parentDN + "/" + mo.Properties["rn"]
	}
	for _, child := range e.Children {
		mo.Children = append(mo.Children, child.toMO(mo.DN))
	}
	return mo
}

// fromMO converts a managed object for configConfMos. The top-level object
// is addressed by dn, children by rn.
func fromMO(mo *types.ManagedObject, status string, top bool) element {
	e := element{XMLName: xml.Name{Local: string(mo.ClassID)}}
	if top {
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: "dn"}, Value: mo.DN})
	} else {
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: "rn"}, Value: mo.RN()})
	}
	if status == StatusDeleted {
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: "status"}, Value: status})
		return e
	}
	for _, name := range mo.PropertyNames() {
		if name == "dn" || name == "rn" || name == "status" {
			continue
		}
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: mo.Properties[name]})
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: "status"}, Value: status})
	for _, child := range mo.Children {
		e.Children = append(e.Children, fromMO(child, status, false))
	}
	return e
}

// filterElement renders filters as an inFilter; several filters are ANDed
func filterElement(classID types.ClassID, filters []types.Filter) *inFilter {
	if len(filters) == 0 {
		return nil
	}

	items := make([]element, 0, len(filters))
	for _, f := range filters {
		op := f.Op
		if op == "" {
			op = types.FilterEq
		}
		items = append(items, element{
			XMLName: xml.Name{Local: string(op)},
			Attrs: []xml.Attr{
				{Name: xml.Name{Local: "class"}, Value: string(classID)},
				{Name: xml.Name{Local: "property"}, Value: f.Property},
				{Name: xml.Name{Local: "value"}, Value: f.Value},
			},
		})
	}

	if len(items) == 1 {
		return &inFilter{Items: items}
	}
	return &inFilter{Items: []element{{XMLName: xml.Name{Local: "and"}, Children: items}}}
}
