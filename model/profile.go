// Package model contains the provisioning profile: the well-known names the
// lifecycle engine creates on the controller and later tears down.
package model

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Provisioning defaults
const (
	DefaultOrganization   = "DevNet"
	DefaultTemplateName   = "DevNet_Skill_Template"
	DefaultInstancePrefix = "DevNet_Skill_Server"
	DefaultMACBlockFrom   = "00:25:B5:00:00:AA"
	DefaultMACBlockTo     = "00:25:B5:00:00:D9"
)

var (
	macRE  = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)
	nameRE = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,32}$`)
)

// ProvisioningProfile names the objects created by the service profile
// provisioner.
type ProvisioningProfile struct {
	// Organization is the sub-organization of org-root used as namespace
	Organization string `yaml:"organization"`

	// TemplateName is the service profile template all instances derive from
	TemplateName string `yaml:"templateName"`

	// InstancePrefix is the service profile name prefix; instances are
	// named <prefix>_<NN>
	InstancePrefix string `yaml:"instancePrefix"`

	// MACBlock is the address range ensured in the default MAC pool
	MACBlock MACBlock `yaml:"macBlock"`
}

// MACBlock is a contiguous MAC address range
type MACBlock struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultProfile returns the DevNet provisioning profile
func DefaultProfile() ProvisioningProfile {
	return ProvisioningProfile{
		Organization:   DefaultOrganization,
		TemplateName:   DefaultTemplateName,
		InstancePrefix: DefaultInstancePrefix,
		MACBlock: MACBlock{
			From: DefaultMACBlockFrom,
			To:   DefaultMACBlockTo,
		},
	}
}

// Validate checks that every name can be used as a relative name
func (p ProvisioningProfile) Validate() error {
	for field, v := range map[string]string{
		"organization":   p.Organization,
		"templateName":   p.TemplateName,
		"instancePrefix": p.InstancePrefix,
	} {
		if !nameRE.MatchString(v) {
			return fmt.Errorf("%s %q is not a valid object name", field, v)
		}
	}
	if !macRE.MatchString(p.MACBlock.From) {
		return fmt.Errorf("macBlock.from %q is not a MAC address", p.MACBlock.From)
	}
	if !macRE.MatchString(p.MACBlock.To) {
		return fmt.Errorf("macBlock.to %q is not a MAC address", p.MACBlock.To)
	}
	return nil
}

// LoadProfile reads a profile from a YAML file. Fields missing from the
// file keep their defaults.
func LoadProfile(path string) (ProvisioningProfile, error) {
	profile := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return ProvisioningProfile{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return ProvisioningProfile{}, fmt.Errorf("error loading profile from %s: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return ProvisioningProfile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}
