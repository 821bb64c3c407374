package xmlapi

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-ucsm/types"
)

// fakeUCSM answers XML API methods the way UCS Manager does
type fakeUCSM struct {
	mu       sync.Mutex
	requests []element
	bodies   []string
}

func (f *fakeUCSM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != APIPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)

	var req element
	if err := xml.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad xml", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	switch req.XMLName.Local {
	case MethodLogin:
		if req.attr("inName") != "admin" || req.attr("inPassword") != "s3cret&<" {
			io.WriteString(w, `<aaaLogin cookie="" response="yes" errorCode="551" invocationResult="unidentified-fail" errorDescr="Authentication failed"/>`)
			return
		}
		io.WriteString(w, `<aaaLogin cookie="" response="yes" outCookie="1700000000/abc" outRefreshPeriod="600" outPriv="admin"/>`)
	case MethodLogout:
		io.WriteString(w, `<aaaLogout cookie="" response="yes" outStatus="success"/>`)
	case MethodResolveDn:
		if req.attr("cookie") != "1700000000/abc" {
			io.WriteString(w, `<error cookie="" response="yes" errorCode="552" invocationResult="unidentified-fail" errorDescr="Authorization required"/>`)
			return
		}
		switch req.attr("dn") {
		case "fabric/lan/net-vlan100":
			io.WriteString(w, `<configResolveDn dn="fabric/lan/net-vlan100" cookie="" response="yes"><outConfig><fabricVlan dn="fabric/lan/net-vlan100" id="100" name="vlan100" sharing="none" status=""/></outConfig></configResolveDn>`)
		default:
			io.WriteString(w, `<configResolveDn dn="`+req.attr("dn")+`" cookie="" response="yes"><outConfig></outConfig></configResolveDn>`)
		}
	case MethodResolveClass:
		switch req.attr("classId") {
		case "faultInst":
			io.WriteString(w, `<configResolveClass cookie="" response="yes" classId="faultInst"><outConfigs>`+
				`<faultInst dn="sys/chassis-1/fault-F0001" id="1" severity="critical"/>`+
				`<faultInst dn="sys/chassis-1/fault-F0002" id="2" severity="minor"/>`+
				`</outConfigs></configResolveClass>`)
		case "lsServer":
			io.WriteString(w, `<configResolveClass cookie="" response="yes" classId="lsServer"><outConfigs>`+
				`<lsServer dn="org-root/org-DevNet/ls-DevNet_Skill_Server_01" name="DevNet_Skill_Server_01" type="instance"><lsBinding rn="pn" pnDn="sys/chassis-1/blade-1"/></lsServer>`+
				`</outConfigs></configResolveClass>`)
		default:
			io.WriteString(w, `<configResolveClass cookie="" response="yes" classId="`+req.attr("classId")+`"><outConfigs/></configResolveClass>`)
		}
	case MethodConfigConfMos:
		io.WriteString(w, `<configConfMos cookie="" response="yes"><outConfigs/></configConfMos>`)
	default:
		io.WriteString(w, `<error response="yes" errorCode="ERR-xml-parse-error" errorDescr="unknown method"/>`)
	}
}

func (f *fakeUCSM) last() element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeUCSM) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func newTestDriver(t *testing.T, password string) (*fakeUCSM, types.Controller) {
	t.Helper()
	fake := &fakeUCSM{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ctrl, err := NewDriver(&types.ControllerConfig{
		Address:  u.Hostname(),
		Port:     port,
		Username: "admin",
		Password: password,
	})
	require.NoError(t, err)
	return fake, ctrl
}

func TestNewDriverValidation(t *testing.T) {
	_, err := NewDriver(nil)
	assert.Error(t, err)

	_, err = NewDriver(&types.ControllerConfig{})
	assert.Error(t, err)

	_, err = NewDriverWithClient(&types.ControllerConfig{Address: "ucsm"}, nil)
	assert.Error(t, err)
}

func TestDriverURL(t *testing.T) {
	tests := []struct {
		name   string
		config types.ControllerConfig
		want   string
	}{
		{"https default port", types.ControllerConfig{Address: "ucsm.lab", TLSEnabled: true}, "https://ucsm.lab:443/nuova"},
		{"http default port", types.ControllerConfig{Address: "10.0.0.5"}, "http://10.0.0.5:80/nuova"},
		{"custom port", types.ControllerConfig{Address: "ucsm.lab", Port: 8443, TLSEnabled: true}, "https://ucsm.lab:8443/nuova"},
		{"ipv6", types.ControllerConfig{Address: "fd00::5", TLSEnabled: true}, "https://[fd00::5]:443/nuova"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			ctrl, err := NewDriver(&cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ctrl.(*Driver).URL())
		})
	}
}

func TestLoginLogout(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()

	require.NoError(t, ctrl.Login(ctx))
	assert.True(t, ctrl.IsConnected())
	assert.Equal(t, "s3cret&<", fake.last().attr("inPassword"))

	require.NoError(t, ctrl.Logout(ctx))
	assert.False(t, ctrl.IsConnected())
	assert.Equal(t, MethodLogout, fake.last().XMLName.Local)
	assert.Equal(t, "1700000000/abc", fake.last().attr("inCookie"))

	// A second logout does not reach the controller
	require.NoError(t, ctrl.Logout(ctx))
	assert.Equal(t, 2, len(fake.requests))
}

func TestLoginRejected(t *testing.T) {
	_, ctrl := newTestDriver(t, "wrong")

	err := ctrl.Login(context.Background())
	require.Error(t, err)

	var pe *types.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "551", pe.Code)
	assert.Equal(t, "Authentication failed", pe.Description)
	assert.False(t, ctrl.IsConnected())
}

func TestLoginUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	srv.Close()

	ctrl, err := NewDriver(&types.ControllerConfig{Address: u.Hostname(), Port: port})
	require.NoError(t, err)

	err = ctrl.Login(context.Background())
	assert.True(t, types.IsTransportError(err), "got %v", err)
}

func TestHTTPErrorIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	ctrl, err := NewDriverWithClient(&types.ControllerConfig{Address: "ignored"}, srv.Client())
	require.NoError(t, err)
	ctrl.(*Driver).url = srv.URL + APIPath

	err = ctrl.Login(context.Background())
	var pe *types.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "403", pe.Code)
}

func TestServerErrorIsTransportError(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream unavailable", status)
			}))
			t.Cleanup(srv.Close)

			ctrl, err := NewDriverWithClient(&types.ControllerConfig{Address: "ignored"}, srv.Client())
			require.NoError(t, err)
			ctrl.(*Driver).url = srv.URL + APIPath

			err = ctrl.Login(context.Background())
			assert.True(t, types.IsTransportError(err), "got %v", err)
			assert.False(t, types.IsProtocolError(err))
			assert.Contains(t, err.Error(), strconv.Itoa(status))
			assert.False(t, ctrl.IsConnected())
		})
	}
}

func TestQueriesRequireSession(t *testing.T) {
	_, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()

	_, err := ctrl.QueryDN(ctx, "org-root")
	assert.ErrorIs(t, err, types.ErrNotConnected)
	_, err = ctrl.QueryClass(ctx, types.ClassFaultInst)
	assert.ErrorIs(t, err, types.ErrNotConnected)
	assert.ErrorIs(t, ctrl.AddMO(types.NewOrg("org-root", "x"), true), types.ErrNotConnected)
	assert.ErrorIs(t, ctrl.Commit(ctx), types.ErrNotConnected)
}

func TestQueryDN(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	mo, err := ctrl.QueryDN(ctx, "fabric/lan/net-vlan100")
	require.NoError(t, err)
	require.NotNil(t, mo)
	assert.Equal(t, types.ClassFabricVlan, mo.ClassID)
	assert.Equal(t, "fabric/lan/net-vlan100", mo.DN)
	assert.Equal(t, "100", mo.Get("id"))
	assert.Equal(t, "vlan100", mo.Get("name"))
	_, hasStatus := mo.Properties["status"]
	assert.False(t, hasStatus)

	req := fake.last()
	assert.Equal(t, MethodResolveDn, req.XMLName.Local)
	assert.Equal(t, "1700000000/abc", req.attr("cookie"))
	assert.Equal(t, "false", req.attr("inHierarchical"))

	mo, err = ctrl.QueryDN(ctx, "fabric/lan/net-vlan200")
	require.NoError(t, err)
	assert.Nil(t, mo)
}

func TestQueryClass(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	faults, err := ctrl.QueryClass(ctx, types.ClassFaultInst)
	require.NoError(t, err)
	require.Len(t, faults, 2)
	assert.Equal(t, "critical", faults[0].Get("severity"))
	assert.Equal(t, "minor", faults[1].Get("severity"))
	assert.Empty(t, fake.last().Children, "no filter expected")

	profiles, err := ctrl.QueryClass(ctx, types.ClassLsServer,
		types.Wildcard("name", "^DevNet_Skill_Server_[0-9]+$"),
		types.Eq("type", "instance"))
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Len(t, profiles[0].Children, 1)
	assert.Equal(t, "org-root/org-DevNet/ls-DevNet_Skill_Server_01/pn", profiles[0].Children[0].DN)
	assert.Equal(t, "sys/chassis-1/blade-1", profiles[0].Children[0].Get("pnDn"))

	req := fake.last()
	require.Len(t, req.Children, 1)
	filter := req.Children[0]
	assert.Equal(t, "inFilter", filter.XMLName.Local)
	require.Len(t, filter.Children, 1)
	and := filter.Children[0]
	assert.Equal(t, "and", and.XMLName.Local)
	require.Len(t, and.Children, 2)
	assert.Equal(t, "wcard", and.Children[0].XMLName.Local)
	assert.Equal(t, "lsServer", and.Children[0].attr("class"))
	assert.Equal(t, "name", and.Children[0].attr("property"))
	assert.Equal(t, "eq", and.Children[1].XMLName.Local)
	assert.Equal(t, "instance", and.Children[1].attr("value"))
}

func TestQueryClassSingleFilterHasNoAnd(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	_, err := ctrl.QueryClass(ctx, types.ClassLsServer, types.Eq("name", "DevNet_Skill_Template"))
	require.NoError(t, err)

	filter := fake.last().Children[0]
	require.Len(t, filter.Children, 1)
	assert.Equal(t, "eq", filter.Children[0].XMLName.Local)
}

func TestCommitSendsStagedChanges(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	// Nothing staged: no request
	require.NoError(t, ctrl.Commit(ctx))
	assert.Equal(t, MethodLogin, fake.last().XMLName.Local)

	sp := types.NewServiceProfile("org-root/org-DevNet", "DevNet_Skill_Server_01", "DevNet_Skill_Template", "sys/chassis-1/blade-2")
	require.NoError(t, ctrl.AddMO(types.NewFabricVlan("100", "vlan100"), false))
	require.NoError(t, ctrl.AddMO(sp, true))
	require.NoError(t, ctrl.RemoveMO(types.NewFabricVlan("200", "vlan200")))
	require.NoError(t, ctrl.Commit(ctx))

	req := fake.last()
	assert.Equal(t, MethodConfigConfMos, req.XMLName.Local)
	require.Len(t, req.Children, 1)
	pairs := req.Children[0].Children
	require.Len(t, pairs, 3)

	vlan := pairs[0].Children[0]
	assert.Equal(t, "fabric/lan/net-vlan100", pairs[0].attr("key"))
	assert.Equal(t, "fabricVlan", vlan.XMLName.Local)
	assert.Equal(t, "fabric/lan/net-vlan100", vlan.attr("dn"))
	assert.Equal(t, "100", vlan.attr("id"))
	assert.Equal(t, StatusCreated, vlan.attr("status"))

	profile := pairs[1].Children[0]
	assert.Equal(t, StatusCreatedModified, profile.attr("status"))
	assert.Equal(t, "DevNet_Skill_Template", profile.attr("srcTemplName"))
	require.Len(t, profile.Children, 1)
	binding := profile.Children[0]
	assert.Equal(t, "lsBinding", binding.XMLName.Local)
	assert.Equal(t, "pn", binding.attr("rn"))
	assert.Equal(t, "sys/chassis-1/blade-2", binding.attr("pnDn"))

	removed := pairs[2].Children[0]
	assert.Equal(t, StatusDeleted, removed.attr("status"))
	assert.Equal(t, "", removed.attr("name"))

	// Staged changes are sent once
	require.NoError(t, ctrl.Commit(ctx))
	assert.Equal(t, 1, strings.Count(strings.Join(fake.bodies, ""), "configConfMos cookie"))
}

func TestModifyMOStatus(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	require.NoError(t, ctrl.ModifyMO(types.NewOrg("org-root", "DevNet")))
	require.NoError(t, ctrl.Commit(ctx))
	assert.Contains(t, fake.lastBody(), `status="modified"`)
}

func TestControllerErrorDocument(t *testing.T) {
	fake, ctrl := newTestDriver(t, "s3cret&<")
	ctx := context.Background()
	require.NoError(t, ctrl.Login(ctx))

	// Drop the cookie on the controller side by forging one locally
	ctrl.(*Driver).cookie = "stale"
	_, err := ctrl.QueryDN(ctx, "org-root")

	var pe *types.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "552", pe.Code)
	assert.Equal(t, MethodResolveDn, fake.last().XMLName.Local)
}
