package lifecycle

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/types"
)

// Reset removes the provisioning organization, every VLAN except VLAN 1
// and every block of the default MAC pool. Objects that are already gone
// are skipped.
func (e *Engine) Reset(ctx context.Context) Result {
	return e.run(OpReset, func(logger *zap.Logger) Result {
		orgDN := types.OrgDN(e.profile.Organization)

		err := e.withSession(ctx, OpReset, logger, func(ctx context.Context, ctrl types.Controller) error {
			org, err := ctrl.QueryDN(ctx, orgDN)
			if err != nil {
				return fatal(OpReset, "lookup organization", err)
			}
			if org != nil {
				if err := ctrl.RemoveMO(org); err != nil {
					return fatal(OpReset, "stage organization removal", err)
				}
				if err := ctrl.Commit(ctx); err != nil {
					return fatal(OpReset, "commit organization removal", err)
				}
				logger.Info("organization removed", zap.String("dn", orgDN))
			}

			vlans, err := ctrl.QueryClass(ctx, types.ClassFabricVlan)
			if err != nil {
				return fatal(OpReset, "list vlans", err)
			}
			removed, err := removeAll(ctx, ctrl, vlans, func(mo *types.ManagedObject) bool {
				return mo.Get("id") != strconv.Itoa(types.VLANDefault)
			})
			if err != nil {
				return fatal(OpReset, "remove vlans", err)
			}
			logger.Info("vlans removed", zap.Int("count", removed))

			blocks, err := ctrl.QueryClass(ctx, types.ClassMacpoolBlock)
			if err != nil {
				return fatal(OpReset, "list mac blocks", err)
			}
			removed, err = removeAll(ctx, ctrl, blocks, func(mo *types.ManagedObject) bool {
				return types.IsDescendant(mo.DN, types.DNMacPoolDefault)
			})
			if err != nil {
				return fatal(OpReset, "remove mac blocks", err)
			}
			logger.Info("mac blocks removed", zap.Int("count", removed))
			return nil
		})
		if err != nil {
			return failed(OpReset, err)
		}
		return succeeded(OpReset, msgResetDone)
	})
}

// removeAll stages a delete for every object match accepts and commits
// them together. Nothing is sent when no object qualifies.
func removeAll(ctx context.Context, ctrl types.Controller, mos []*types.ManagedObject, match func(*types.ManagedObject) bool) (int, error) {
	staged := 0
	for _, mo := range mos {
		if !match(mo) {
			continue
		}
		if err := ctrl.RemoveMO(mo); err != nil {
			return 0, err
		}
		staged++
	}
	if staged == 0 {
		return 0, nil
	}
	if err := ctrl.Commit(ctx); err != nil {
		return 0, err
	}
	return staged, nil
}
