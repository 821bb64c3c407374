package main

import (
	"fmt"

	"github.com/spf13/cobra"

	southbound "github.com/nanoncore/nano-ucsm"
	"github.com/nanoncore/nano-ucsm/drivers/mock"
	"github.com/nanoncore/nano-ucsm/types"
)

func newFaultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faults",
		Short: "Count faults by severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := types.Protocol(a.cfg.Faults.Source)
			if source == types.ProtocolXMLAPI || a.demo != nil {
				_, res := a.engine.FaultCounts(cmd.Context())
				return a.finish(res)
			}

			src, err := southbound.NewFaultSource(source, a.cfg.FaultSourceConfig())
			if err != nil {
				return err
			}
			_, res := a.engine.FaultCountsFrom(cmd.Context(), src)
			return a.finish(res)
		},
	}
	cmd.Flags().String("fault-source", string(types.ProtocolXMLAPI), "where to read faults: xmlapi, snmp or cli")
	cmd.Flags().String("snmp-version", "", "SNMP version: 1, 2c or 3 (default 2c)")
	cmd.Flags().String("snmp-community", "", "SNMP community (default public)")
	return cmd
}

func newVlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vlan",
		Short: "Manage fabric VLANs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id>",
		Short: "Create VLAN <id> named vlan<id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(a.engine.AddVlan(cmd.Context(), args[0]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete VLAN <id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(a.engine.RemoveVlan(cmd.Context(), args[0]))
		},
	})
	return cmd
}

func newProvisionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Bind the next service profile to an available blade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(a.engine.Provision(cmd.Context()))
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the provisioning organization, VLANs and default MAC pool blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(a.engine.Reset(cmd.Context()))
		},
	}
}

// newDemoDomain seeds a small simulated domain: two chassis with four
// blades each and a handful of open faults.
func newDemoDomain() *mock.Domain {
	domain := mock.NewDomain()
	for chassis := 1; chassis <= 2; chassis++ {
		for slot := 1; slot <= 4; slot++ {
			availability := types.BladeAvailable
			if chassis == 1 && slot == 1 {
				availability = types.BladeUnavailable
			}
			domain.Seed(types.NewComputeBlade(fmt.Sprint(chassis), fmt.Sprint(slot), types.BladeAdminInService, availability))
		}
	}

	for i, severity := range []string{"critical", "major", "major", "minor", "warning", "warning", "info"} {
		domain.Seed(types.NewFaultInst(fmt.Sprint(1000+i), severity))
	}
	return domain
}
