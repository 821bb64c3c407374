package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/types"
)

// FormatSuffix renders an instance suffix: two digits up to 9, plain
// decimal above.
func FormatSuffix(n int) string {
	if n <= 9 {
		return fmt.Sprintf("%02d", n)
	}
	return strconv.Itoa(n)
}

// InstanceNamePattern matches names of instances created with prefix
func InstanceNamePattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix) + "_[0-9]+$"
}

// NextSuffix returns one more than the highest suffix among names that
// carry prefix, or 1 if none do. Names whose suffix is not a number are
// ignored.
func NextSuffix(prefix string, names []string) int {
	highest := 0
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix+"_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

// NextProfileName returns the name of the next instance after names
func NextProfileName(prefix string, names []string) string {
	return prefix + "_" + FormatSuffix(NextSuffix(prefix, names))
}

// FindAvailableBlade returns the first blade that is in service and
// available, in controller order. The first match wins; there is no
// load balancing.
func FindAvailableBlade(blades []*types.ManagedObject) (types.Blade, bool) {
	for _, mo := range blades {
		b := types.BladeFromMO(mo)
		if b.Qualifies() {
			return b, true
		}
	}
	return types.Blade{}, false
}

// Provision creates the next service profile instance from the template
// and binds it to the first free blade. Each setup step is committed
// before the next one starts.
func (e *Engine) Provision(ctx context.Context) Result {
	return e.run(OpProvision, func(logger *zap.Logger) Result {
		p := e.profile
		orgDN := types.OrgDN(p.Organization)

		var res Result
		err := e.withSession(ctx, OpProvision, logger, func(ctx context.Context, ctrl types.Controller) error {
			if err := ensure(ctx, ctrl, types.NewOrg(types.DNOrgRoot, p.Organization)); err != nil {
				return fatal(OpProvision, "ensure organization", err)
			}
			logger.Debug("organization ensured", zap.String("dn", orgDN))

			pool, err := ctrl.QueryDN(ctx, types.DNMacPoolDefault)
			if err != nil {
				return fatal(OpProvision, "lookup mac pool", err)
			}
			if pool == nil {
				return newError(KindFatal, OpProvision, missingPoolMessage(),
					&types.ProtocolError{Op: "lookup mac pool", Description: types.DNMacPoolDefault + " does not exist"})
			}
			block := types.NewMacpoolBlock(pool.DN, p.MACBlock.From, p.MACBlock.To)
			if err := ensure(ctx, ctrl, block); err != nil {
				return fatal(OpProvision, "ensure mac block", err)
			}
			logger.Debug("mac block ensured", zap.String("dn", block.DN))

			template := types.NewServiceProfileTemplate(orgDN, p.TemplateName)
			if err := ensure(ctx, ctrl, template); err != nil {
				return fatal(OpProvision, "ensure template", err)
			}
			templates, err := ctrl.QueryClass(ctx, types.ClassLsServer, types.Eq("name", p.TemplateName))
			if err != nil {
				return fatal(OpProvision, "confirm template", err)
			}
			if !containsDN(templates, template.DN) {
				return newError(KindStateConfirmation, OpProvision, missingTemplateMessage(p.TemplateName), nil)
			}
			logger.Debug("template ensured", zap.String("dn", template.DN))

			// Naming and blade selection are read-then-write on shared
			// controller state.
			unlock := e.locks.lock(p.Organization)
			defer unlock()

			instances, err := ctrl.QueryClass(ctx, types.ClassLsServer,
				types.Wildcard("name", InstanceNamePattern(p.InstancePrefix)),
				types.Eq("type", types.ProfileTypeInstance))
			if err != nil {
				return fatal(OpProvision, "list instances", err)
			}
			names := make([]string, 0, len(instances))
			for _, mo := range instances {
				names = append(names, mo.Get("name"))
			}
			name := NextProfileName(p.InstancePrefix, names)

			blades, err := ctrl.QueryClass(ctx, types.ClassComputeBlade)
			if err != nil {
				return fatal(OpProvision, "list blades", err)
			}
			blade, ok := FindAvailableBlade(blades)
			if !ok {
				return newError(KindResourceUnavailable, OpProvision, noBladeMessage(),
					fmt.Errorf("none of %d blades is in service and available", len(blades)))
			}

			profile := types.NewServiceProfile(orgDN, name, p.TemplateName, blade.DN)
			if err := ctrl.AddMO(profile, false); err != nil {
				return fatal(OpProvision, "stage service profile", err)
			}
			if err := ctrl.Commit(ctx); err != nil {
				return fatal(OpProvision, "commit service profile", err)
			}
			logger.Info("service profile bound",
				zap.String("dn", profile.DN),
				zap.String("blade", blade.DN))

			res = succeeded(OpProvision, provisionedMessage(blade.SlotID, blade.ChassisID, name, p.Organization))
			return nil
		})
		if err != nil {
			return failed(OpProvision, err)
		}
		return res
	})
}

// ensure creates mo or updates it in place, and commits
func ensure(ctx context.Context, ctrl types.Controller, mo *types.ManagedObject) error {
	if err := ctrl.AddMO(mo, true); err != nil {
		return err
	}
	return ctrl.Commit(ctx)
}

func containsDN(mos []*types.ManagedObject, dn string) bool {
	for _, mo := range mos {
		if mo.DN == dn {
			return true
		}
	}
	return false
}
