package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nanoncore/nano-ucsm/drivers/mock"
	"github.com/nanoncore/nano-ucsm/model"
	"github.com/nanoncore/nano-ucsm/types"
)

func testConfig() *types.ControllerConfig {
	return &types.ControllerConfig{
		Name:     "test-ucsm",
		Address:  "ucsm.test",
		Protocol: types.ProtocolMock,
		Username: "admin",
		Password: "password",
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *mock.Domain) {
	t.Helper()
	domain := mock.NewDomain()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	e, err := NewEngine(testConfig(), domain.Dial, opts...)
	require.NoError(t, err)
	return e, domain
}

// assertSessionsClosed checks that every login was paired with a logout
func assertSessionsClosed(t *testing.T, domain *mock.Domain) {
	t.Helper()
	assert.Equal(t, domain.CountCommands("login"), domain.CountCommands("logout"),
		"history: %v", domain.GetCommandHistory())
}

type observation struct {
	operation string
	outcome   string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []observation
}

func (f *fakeRecorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observation{operation, outcome})
}

func TestNewEngine(t *testing.T) {
	domain := mock.NewDomain()

	_, err := NewEngine(nil, domain.Dial)
	assert.Error(t, err)

	_, err = NewEngine(testConfig(), nil)
	assert.Error(t, err)

	bad := model.DefaultProfile()
	bad.Organization = "has spaces"
	_, err = NewEngine(testConfig(), domain.Dial, WithProfile(bad))
	assert.Error(t, err)

	e, err := NewEngine(testConfig(), domain.Dial, WithLogger(nil), WithRecorder(nil))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(), e.Profile())
}

func TestDialFailureIsConnectivity(t *testing.T) {
	dial := func(*types.ControllerConfig) (types.Controller, error) {
		return nil, errors.New("no route")
	}
	e, err := NewEngine(testConfig(), dial)
	require.NoError(t, err)

	res := e.Reset(context.Background())
	assert.Equal(t, OutcomeConnectivityError, res.Outcome)
	assert.Equal(t, msgConnectivity, res.Text())
	assert.True(t, IsKind(res.Err, KindConnectivity))
}

func TestRecorderObservesEveryOperation(t *testing.T) {
	rec := &fakeRecorder{}
	e, _ := newTestEngine(t, WithRecorder(rec))
	ctx := context.Background()

	e.AddVlan(ctx, "1")
	e.AddVlan(ctx, "100")
	e.AddVlan(ctx, "100")
	e.FaultCounts(ctx)
	e.Reset(ctx)

	assert.Equal(t, []observation{
		{"add-vlan", "validation-error"},
		{"add-vlan", "success"},
		{"add-vlan", "no-change"},
		{"faults", "success"},
		{"reset", "success"},
	}, rec.seen)
}

func TestOperationLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e, _ := newTestEngine(t, WithLogger(zap.New(core)))

	e.AddVlan(context.Background(), "300")

	entries := logs.FilterMessage("operation completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "add-vlan", fields["op"])
	assert.Equal(t, "success", fields["outcome"])
}

func TestResultEndsSession(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, res := range []Result{
		e.AddVlan(ctx, "1"),
		e.AddVlan(ctx, "12"),
		e.RemoveVlan(ctx, "12"),
		e.Provision(ctx),
		e.Reset(ctx),
	} {
		assert.True(t, res.EndSession())
		assert.NotEmpty(t, res.Text(), "operation %s", res.Operation)
	}
}

func TestSessionClosedOnPanic(t *testing.T) {
	e, domain := newTestEngine(t)

	assert.Panics(t, func() {
		_ = e.withSession(context.Background(), OpReset, zap.NewNop(), func(context.Context, types.Controller) error {
			panic("boom")
		})
	})
	assertSessionsClosed(t, domain)
}
