package lifecycle

import (
	"fmt"
	"strings"
)

// Spoken texts. Every message is a complete sentence that a voice front
// end can read out unchanged.
const (
	msgConnectivity = "There was an error connecting to UCS Manager, " +
		"please check the access credentials or the IP address."

	prefixFaults     = "For the requested fault retrieval operation from UCS Manager, "
	prefixAddVlan    = "For the requested operation of adding a VLAN to UCS Manager, "
	prefixRemoveVlan = "For the requested operation of removing a VLAN from UCS Manager, "
	prefixProvision  = "For the requested server provisioning operation of UCS Manager, "
	prefixReset      = "For the requested cleanup operation of UCS Manager, "

	msgAddVlanReserved = prefixAddVlan +
		"VLAN 1 can be given additional names, however this skill does not allow that procedure."
	msgRemoveVlanReserved = prefixRemoveVlan +
		"this skill does not support removing VLAN 1."

	msgResetDone = prefixReset + "UCS Manager has been cleaned up."
)

func vlanNotPermittedMessage(prefix, id string) string {
	return fmt.Sprintf("%sthe provided VLAN ID %s is not permitted.", prefix, id)
}

func vlanAddedMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s has been added to UCS Manager.", prefixAddVlan, id)
}

func vlanNotAddedMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s was not added to UCS Manager.", prefixAddVlan, id)
}

func vlanExistsMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s already exists in UCS Manager.", prefixAddVlan, id)
}

func vlanRemovedMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s has been removed from UCS Manager.", prefixRemoveVlan, id)
}

func vlanNotRemovedMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s was not removed from UCS Manager.", prefixRemoveVlan, id)
}

func vlanMissingMessage(id string) string {
	return fmt.Sprintf("%sVLAN %s does not exist in UCS Manager.", prefixRemoveVlan, id)
}

func faultsMessage(c Counts) string {
	var b strings.Builder
	b.WriteString(prefixFaults)
	fmt.Fprintf(&b, "there are %d critical faults, %d major faults, %d minor faults, ",
		c.Critical, c.Major, c.Minor)
	if c.Other > 0 {
		fmt.Fprintf(&b, "%d warnings, and %d other faults.", c.Warning, c.Other)
	} else {
		fmt.Fprintf(&b, "and %d warnings.", c.Warning)
	}
	return b.String()
}

func provisionedMessage(slot, chassis, profile, org string) string {
	return fmt.Sprintf("%sserver %s, in chassis %s, has been provisioned with the service profile %s, in the %s organization.",
		prefixProvision, slot, chassis, speakable(profile), speakable(org))
}

func noBladeMessage() string {
	return prefixProvision + "no compute blade is in service and available, so no server was provisioned."
}

func missingPoolMessage() string {
	return prefixProvision + "the default MAC pool does not exist in UCS Manager."
}

func missingTemplateMessage(template string) string {
	return fmt.Sprintf("%sthe service profile template %s could not be confirmed.", prefixProvision, speakable(template))
}

func fatalMessage(op Operation) string {
	switch op {
	case OpFaults:
		return prefixFaults + "UCS Manager reported an unexpected error."
	case OpAddVlan:
		return prefixAddVlan + "UCS Manager reported an unexpected error."
	case OpRemoveVlan:
		return prefixRemoveVlan + "UCS Manager reported an unexpected error."
	case OpProvision:
		return prefixProvision + "UCS Manager reported an unexpected error."
	case OpReset:
		return prefixReset + "UCS Manager reported an unexpected error."
	default:
		return "UCS Manager reported an unexpected error."
	}
}

// speakable replaces underscores so text-to-speech reads object names as
// words.
func speakable(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
