package lifecycle

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/types"
)

// AddVlan creates fabric VLAN id named vlan<id>, then re-reads it to
// confirm. An existing VLAN is left untouched.
func (e *Engine) AddVlan(ctx context.Context, id string) Result {
	return e.run(OpAddVlan, func(logger *zap.Logger) Result {
		raw := strings.TrimSpace(id)
		vid, err := types.ParseVLANID(raw)
		if err == nil && vid == types.VLANDefault {
			return failed(OpAddVlan, newError(KindValidation, OpAddVlan, msgAddVlanReserved, nil).
				withCode(types.ErrCodeVLANReserved))
		}
		if err != nil || !types.VLANIDPermitted(vid) {
			return failed(OpAddVlan, newError(KindValidation, OpAddVlan, vlanNotPermittedMessage(prefixAddVlan, raw), err).
				withCode(types.ErrCodeInvalidVLANID))
		}

		canonical := strconv.Itoa(vid)
		name := types.VLANName(vid)
		dn := types.VlanDN(name)
		logger = logger.With(zap.String("dn", dn))

		var res Result
		err = e.withSession(ctx, OpAddVlan, logger, func(ctx context.Context, ctrl types.Controller) error {
			existing, err := ctrl.QueryDN(ctx, dn)
			if err != nil {
				return fatal(OpAddVlan, "lookup vlan", err)
			}
			if existing != nil {
				res = unchanged(OpAddVlan, vlanExistsMessage(canonical))
				return nil
			}

			if err := ctrl.AddMO(types.NewFabricVlan(canonical, name), false); err != nil {
				return fatal(OpAddVlan, "stage vlan", err)
			}
			if err := ctrl.Commit(ctx); err != nil {
				return fatal(OpAddVlan, "commit vlan", err)
			}
			logger.Debug("vlan committed")

			confirmed, err := ctrl.QueryDN(ctx, dn)
			if err != nil {
				return fatal(OpAddVlan, "confirm vlan", err)
			}
			if confirmed == nil || confirmed.Get("name") != name {
				return newError(KindStateConfirmation, OpAddVlan, vlanNotAddedMessage(canonical), nil).
					withCode(types.ErrCodeVLANNotConfirmed)
			}

			res = succeeded(OpAddVlan, vlanAddedMessage(canonical))
			return nil
		})
		if err != nil {
			return failed(OpAddVlan, err)
		}
		return res
	})
}

// RemoveVlan deletes fabric VLAN id, then re-reads it to confirm. A
// missing VLAN is reported without sending a delete.
func (e *Engine) RemoveVlan(ctx context.Context, id string) Result {
	return e.run(OpRemoveVlan, func(logger *zap.Logger) Result {
		raw := strings.TrimSpace(id)
		vid, err := types.ParseVLANID(raw)
		if err != nil {
			return failed(OpRemoveVlan, newError(KindValidation, OpRemoveVlan, vlanNotPermittedMessage(prefixRemoveVlan, raw), err).
				withCode(types.ErrCodeInvalidVLANID))
		}
		if vid == types.VLANDefault {
			return failed(OpRemoveVlan, newError(KindValidation, OpRemoveVlan, msgRemoveVlanReserved, nil).
				withCode(types.ErrCodeVLANReserved))
		}

		canonical := strconv.Itoa(vid)
		name := types.VLANName(vid)
		dn := types.VlanDN(name)
		logger = logger.With(zap.String("dn", dn))

		var res Result
		err = e.withSession(ctx, OpRemoveVlan, logger, func(ctx context.Context, ctrl types.Controller) error {
			existing, err := ctrl.QueryDN(ctx, dn)
			if err != nil {
				return fatal(OpRemoveVlan, "lookup vlan", err)
			}
			if existing == nil || existing.Get("name") != name {
				res = unchanged(OpRemoveVlan, vlanMissingMessage(canonical))
				return nil
			}

			if err := ctrl.RemoveMO(existing); err != nil {
				return fatal(OpRemoveVlan, "stage vlan removal", err)
			}
			if err := ctrl.Commit(ctx); err != nil {
				return fatal(OpRemoveVlan, "commit vlan removal", err)
			}
			logger.Debug("vlan removal committed")

			remaining, err := ctrl.QueryDN(ctx, dn)
			if err != nil {
				return fatal(OpRemoveVlan, "confirm vlan removal", err)
			}
			if remaining != nil {
				return newError(KindStateConfirmation, OpRemoveVlan, vlanNotRemovedMessage(canonical), nil).
					withCode(types.ErrCodeVLANNotConfirmed)
			}

			res = succeeded(OpRemoveVlan, vlanRemovedMessage(canonical))
			return nil
		})
		if err != nil {
			return failed(OpRemoveVlan, err)
		}
		return res
	})
}
