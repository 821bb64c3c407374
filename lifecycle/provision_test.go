package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-ucsm/drivers/mock"
	"github.com/nanoncore/nano-ucsm/model"
	"github.com/nanoncore/nano-ucsm/types"
)

const (
	testOrgDN    = "org-root/org-DevNet"
	testBlockDN  = "org-root/mac-pool-default/block-00:25:B5:00:00:AA-00:25:B5:00:00:D9"
	testTemplate = "org-root/org-DevNet/ls-DevNet_Skill_Template"
)

func seedInstances(domain *mock.Domain, names ...string) {
	domain.Seed(types.NewOrg(types.DNOrgRoot, model.DefaultOrganization))
	for _, name := range names {
		domain.Seed(types.NewManagedObject(types.ClassLsServer, testOrgDN, "ls-"+name, map[string]string{
			"name": name,
			"type": types.ProfileTypeInstance,
		}))
	}
}

func TestFormatSuffix(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "01"},
		{4, "04"},
		{9, "09"},
		{10, "10"},
		{11, "11"},
		{123, "123"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSuffix(tt.n))
		})
	}
}

func TestNextProfileName(t *testing.T) {
	const prefix = model.DefaultInstancePrefix

	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"none", nil, "DevNet_Skill_Server_01"},
		{"after three", []string{"DevNet_Skill_Server_01", "DevNet_Skill_Server_02", "DevNet_Skill_Server_03"}, "DevNet_Skill_Server_04"},
		{"nine only", []string{"DevNet_Skill_Server_09"}, "DevNet_Skill_Server_10"},
		{"unordered with gap", []string{"DevNet_Skill_Server_12", "DevNet_Skill_Server_02"}, "DevNet_Skill_Server_13"},
		{"unparseable ignored", []string{"DevNet_Skill_Server_x", "DevNet_Skill_Server_", "other_07"}, "DevNet_Skill_Server_01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextProfileName(prefix, tt.existing))
		})
	}
}

func TestInstanceNamePattern(t *testing.T) {
	assert.Equal(t, `^DevNet_Skill_Server_[0-9]+$`, InstanceNamePattern("DevNet_Skill_Server"))
	assert.Equal(t, `^a\.b_[0-9]+$`, InstanceNamePattern("a.b"))
}

func TestFindAvailableBlade(t *testing.T) {
	blades := []*types.ManagedObject{
		types.NewComputeBlade("1", "1", "out-of-service", types.BladeAvailable),
		types.NewComputeBlade("1", "2", types.BladeAdminInService, types.BladeUnavailable),
		types.NewComputeBlade("2", "3", types.BladeAdminInService, types.BladeAvailable),
		types.NewComputeBlade("2", "4", types.BladeAdminInService, types.BladeAvailable),
	}

	blade, ok := FindAvailableBlade(blades)
	require.True(t, ok)
	assert.Equal(t, "sys/chassis-2/blade-3", blade.DN)
	assert.Equal(t, "2", blade.ChassisID)
	assert.Equal(t, "3", blade.SlotID)

	_, ok = FindAvailableBlade(blades[:2])
	assert.False(t, ok)

	_, ok = FindAvailableBlade(nil)
	assert.False(t, ok)
}

func TestProvisionBindsFirstAvailableBlade(t *testing.T) {
	e, domain := newTestEngine(t)
	domain.Seed(
		types.NewComputeBlade("1", "1", types.BladeAdminInService, types.BladeUnavailable),
		types.NewComputeBlade("1", "2", types.BladeAdminInService, types.BladeAvailable),
		types.NewComputeBlade("1", "3", types.BladeAdminInService, types.BladeAvailable),
	)

	res := e.Provision(context.Background())
	require.Equal(t, OutcomeSuccess, res.Outcome, res.Text())
	assert.Equal(t, prefixProvision+"server 2, in chassis 1, has been provisioned with the service profile "+
		"DevNet Skill Server 01, in the DevNet organization.", res.Text())

	assert.NotNil(t, domain.Get(testOrgDN))
	assert.NotNil(t, domain.Get(testBlockDN))

	template := domain.Get(testTemplate)
	require.NotNil(t, template)
	assert.Equal(t, types.ProfileTypeInitialTemplate, template.Get("type"))

	profile := domain.Get("org-root/org-DevNet/ls-DevNet_Skill_Server_01")
	require.NotNil(t, profile)
	assert.Equal(t, types.ProfileTypeInstance, profile.Get("type"))
	assert.Equal(t, model.DefaultTemplateName, profile.Get("srcTemplName"))

	binding := domain.Get("org-root/org-DevNet/ls-DevNet_Skill_Server_01/pn")
	require.NotNil(t, binding)
	assert.Equal(t, "sys/chassis-1/blade-2", binding.Get("pnDn"))

	blade := types.BladeFromMO(domain.Get("sys/chassis-1/blade-2"))
	assert.Equal(t, types.BladeUnavailable, blade.Availability)
	assert.Equal(t, types.BladeAssociated, blade.Association)

	assertSessionsClosed(t, domain)
}

func TestSequentialProvisioningUsesNextBlade(t *testing.T) {
	e, domain := newTestEngine(t)
	domain.Seed(
		types.NewComputeBlade("1", "1", types.BladeAdminInService, types.BladeAvailable),
		types.NewComputeBlade("1", "2", types.BladeAdminInService, types.BladeAvailable),
	)
	ctx := context.Background()

	first := e.Provision(ctx)
	require.Equal(t, OutcomeSuccess, first.Outcome, first.Text())
	assert.Contains(t, first.Text(), "server 1, in chassis 1, has been provisioned with the service profile DevNet Skill Server 01")

	second := e.Provision(ctx)
	require.Equal(t, OutcomeSuccess, second.Outcome, second.Text())
	assert.Contains(t, second.Text(), "server 2, in chassis 1, has been provisioned with the service profile DevNet Skill Server 02")

	for _, dn := range []string{"sys/chassis-1/blade-1", "sys/chassis-1/blade-2"} {
		blade := types.BladeFromMO(domain.Get(dn))
		assert.Equal(t, types.BladeUnavailable, blade.Availability, dn)
		assert.Equal(t, types.BladeAssociated, blade.Association, dn)
	}

	third := e.Provision(ctx)
	assert.Equal(t, OutcomeResourceUnavailable, third.Outcome)
	assert.Equal(t, noBladeMessage(), third.Text())
	assertSessionsClosed(t, domain)
}

func TestProvisionStepOrder(t *testing.T) {
	e, domain := newTestEngine(t)
	domain.Seed(types.NewComputeBlade("1", "1", types.BladeAdminInService, types.BladeAvailable))

	require.Equal(t, OutcomeSuccess, e.Provision(context.Background()).Outcome)

	assert.Equal(t, []string{
		"login",
		"commit add " + testOrgDN,
		"resolveDn " + types.DNMacPoolDefault,
		"commit add " + testBlockDN,
		"commit add " + testTemplate,
		"resolveClass lsServer",
		"resolveClass lsServer",
		"resolveClass computeBlade",
		"commit add org-root/org-DevNet/ls-DevNet_Skill_Server_01",
		"logout",
	}, domain.GetCommandHistory())
}

func TestProvisionIsIdempotentForSetupObjects(t *testing.T) {
	e, domain := newTestEngine(t)
	domain.Seed(
		types.NewComputeBlade("1", "1", types.BladeAdminInService, types.BladeAvailable),
		types.NewComputeBlade("1", "2", types.BladeAdminInService, types.BladeAvailable),
	)
	ctx := context.Background()

	first := e.Provision(ctx)
	second := e.Provision(ctx)
	require.Equal(t, OutcomeSuccess, first.Outcome)
	require.Equal(t, OutcomeSuccess, second.Outcome)
	assert.Contains(t, second.Text(), "server 2, in chassis 1")
	assert.Contains(t, second.Text(), "DevNet Skill Server 02")

	assert.Len(t, domain.Objects(types.ClassOrg), 2)
	assert.Len(t, domain.Objects(types.ClassMacpoolBlock), 1)
	assert.Len(t, domain.Objects(types.ClassLsServer), 3)
}

func TestProvisionContinuesNumbering(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"after three", []string{"DevNet_Skill_Server_01", "DevNet_Skill_Server_02", "DevNet_Skill_Server_03"}, "DevNet_Skill_Server_04"},
		{"after nine", []string{"DevNet_Skill_Server_09"}, "DevNet_Skill_Server_10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, domain := newTestEngine(t)
			seedInstances(domain, tt.existing...)
			domain.Seed(types.NewComputeBlade("1", "5", types.BladeAdminInService, types.BladeAvailable))

			res := e.Provision(context.Background())
			require.Equal(t, OutcomeSuccess, res.Outcome, res.Text())
			assert.NotNil(t, domain.Get(types.ProfileDN(testOrgDN, tt.want)))
		})
	}
}

func TestProvisionWithoutBlade(t *testing.T) {
	tests := []struct {
		name   string
		blades []*types.ManagedObject
	}{
		{"no blades", nil},
		{"none qualifies", []*types.ManagedObject{
			types.NewComputeBlade("1", "1", "out-of-service", types.BladeAvailable),
			types.NewComputeBlade("1", "2", types.BladeAdminInService, types.BladeUnavailable),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, domain := newTestEngine(t)
			domain.Seed(tt.blades...)

			res := e.Provision(context.Background())
			assert.Equal(t, OutcomeResourceUnavailable, res.Outcome)
			assert.Equal(t, noBladeMessage(), res.Text())
			assert.True(t, IsKind(res.Err, KindResourceUnavailable))
			assert.Equal(t, 0, domain.CountCommands("commit add org-root/org-DevNet/ls-DevNet_Skill_Server"))
			assertSessionsClosed(t, domain)
		})
	}
}

func TestProvisionWithoutDefaultPool(t *testing.T) {
	e, domain := newTestEngine(t)

	ctrl, _ := domain.Dial(testConfig())
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))
	require.NoError(t, ctrl.RemoveMO(domain.Get(types.DNMacPoolDefault)))
	require.NoError(t, ctrl.Commit(ctx))
	require.NoError(t, ctrl.Logout(ctx))

	res := e.Provision(ctx)
	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, missingPoolMessage(), res.Text())
	assert.True(t, types.IsProtocolError(res.Err))
	assert.Nil(t, domain.Get(testTemplate))
	assertSessionsClosed(t, domain)
}

func TestProvisionCustomProfile(t *testing.T) {
	profile := model.ProvisioningProfile{
		Organization:   "Lab",
		TemplateName:   "Lab_Template",
		InstancePrefix: "Lab_Server",
		MACBlock:       model.MACBlock{From: "00:25:B5:10:00:00", To: "00:25:B5:10:00:0F"},
	}
	e, domain := newTestEngine(t, WithProfile(profile))
	domain.Seed(types.NewComputeBlade("3", "7", types.BladeAdminInService, types.BladeAvailable))

	res := e.Provision(context.Background())
	require.Equal(t, OutcomeSuccess, res.Outcome, res.Text())
	assert.Contains(t, res.Text(), "Lab Server 01, in the Lab organization")
	assert.NotNil(t, domain.Get("org-root/org-Lab/ls-Lab_Server_01"))
	assert.NotNil(t, domain.Get("org-root/mac-pool-default/block-00:25:B5:10:00:00-00:25:B5:10:00:0F"))
}

func TestConcurrentProvisioningPicksDistinctNamesAndBlades(t *testing.T) {
	const workers = 8

	e, domain := newTestEngine(t)
	for slot := 1; slot <= workers; slot++ {
		domain.Seed(types.NewComputeBlade("1", fmt.Sprint(slot), types.BladeAdminInService, types.BladeAvailable))
	}

	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Provision(context.Background())
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.Equal(t, OutcomeSuccess, res.Outcome, res.Text())
	}

	names := make(map[string]bool)
	blades := make(map[string]bool)
	for _, mo := range domain.Objects(types.ClassLsServer) {
		if mo.Get("type") == types.ProfileTypeInstance {
			names[mo.Get("name")] = true
		}
	}
	for _, mo := range domain.Objects(types.ClassLsBinding) {
		blades[mo.Get("pnDn")] = true
	}
	assert.Len(t, names, workers)
	assert.Len(t, blades, workers)
	for i := 1; i <= workers; i++ {
		assert.True(t, names[fmt.Sprintf("DevNet_Skill_Server_%s", FormatSuffix(i))])
	}
	assertSessionsClosed(t, domain)
}
