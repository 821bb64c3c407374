package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	southbound "github.com/nanoncore/nano-ucsm"
	"github.com/nanoncore/nano-ucsm/drivers/mock"
	"github.com/nanoncore/nano-ucsm/internal/config"
	"github.com/nanoncore/nano-ucsm/internal/logging"
	"github.com/nanoncore/nano-ucsm/internal/metrics"
	"github.com/nanoncore/nano-ucsm/lifecycle"
	"github.com/nanoncore/nano-ucsm/model"
	"github.com/nanoncore/nano-ucsm/types"
)

// Exit codes for CLI commands. Every code except ExitCodeError maps to
// one lifecycle outcome so scripts can branch without parsing text.
const (
	ExitCodeSuccess             = 0
	ExitCodeError               = 1
	ExitCodeValidation          = 2
	ExitCodeConnectivity        = 3
	ExitCodeStateConfirmation   = 4
	ExitCodeResourceUnavailable = 5
)

// outcomeError is returned by commands whose operation failed. The
// message has already been printed.
type outcomeError struct {
	result lifecycle.Result
}

func (e *outcomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.result.Operation, e.result.Outcome)
}

// app holds what every subcommand needs once flags are parsed
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	mock       bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	engine   *lifecycle.Engine
	demo     *mock.Domain
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ucsm-ops",
		Short: "Run lifecycle operations against Cisco UCS Manager",
		Long: `ucsm-ops counts faults, manages fabric VLANs, provisions blades with
service profiles and resets everything it created on a UCS Manager domain.
Each invocation opens one session, runs one operation and prints the result.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./ucsm-ops.yaml or /etc/ucsm-ops/ucsm-ops.yaml)")
	pf.BoolVar(&a.mock, "mock", false, "run against an in-memory demo domain instead of a controller")
	pf.String("host", "", "UCS Manager address (env UCSM_HOST)")
	pf.Int("port", 0, "XML API port (default 443, or 80 without TLS)")
	pf.String("protocol", string(types.ProtocolXMLAPI), "controller protocol (xmlapi or mock)")
	pf.String("username", "", "UCS Manager user (env UCSM_USERNAME)")
	pf.String("password", "", "UCS Manager password (env UCSM_PASSWORD)")
	pf.Bool("tls", true, "use https for the XML API")
	pf.Bool("insecure", false, "skip TLS certificate verification")
	pf.Duration("timeout", 0, "per-request timeout (default 30s)")
	pf.String("log-level", "", "log level: debug, info, warn or error (default info)")
	pf.Bool("log-development", false, "human-friendly console logs")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	pf.String("profile", "", "provisioning profile YAML file")

	root.AddCommand(
		newFaultsCmd(a),
		newVlanCmd(a),
		newProvisionCmd(a),
		newResetCmd(a),
	)
	return root
}

// setup loads configuration and builds the engine
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.mock {
		if err := cmd.Flags().Set("protocol", string(types.ProtocolMock)); err != nil {
			return err
		}
	}

	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(a.registry)
	if err != nil {
		return err
	}

	profile := model.DefaultProfile()
	if cfg.Profile != "" {
		if profile, err = model.LoadProfile(cfg.Profile); err != nil {
			return err
		}
	}

	var dial lifecycle.Dialer
	if types.Protocol(cfg.Controller.Protocol) == types.ProtocolMock {
		a.demo = newDemoDomain()
		dial = a.demo.Dial
	} else {
		dial = func(c *types.ControllerConfig) (types.Controller, error) {
			return southbound.NewController(c.Protocol, c)
		}
	}

	a.engine, err = lifecycle.NewEngine(cfg.ControllerConfig(), dial,
		lifecycle.WithLogger(logger),
		lifecycle.WithProfile(profile),
		lifecycle.WithRecorder(recorder),
	)
	return err
}

// finish prints the result, writes metrics and turns failed outcomes into
// an outcomeError.
func (a *app) finish(res lifecycle.Result) error {
	fmt.Fprintln(a.stdout, res.Text())

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			a.logger.Error("metrics not written", zap.Error(err))
		}
	}
	_ = a.logger.Sync()

	if res.Outcome.Failed() {
		return &outcomeError{result: res}
	}
	return nil
}

// run executes the CLI and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitCodeSuccess
	}

	var oe *outcomeError
	if !errors.As(err, &oe) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return getExitCode(err)
}

// getExitCode determines the exit code based on the error type
func getExitCode(err error) int {
	var oe *outcomeError
	if !errors.As(err, &oe) {
		return ExitCodeError
	}

	switch oe.result.Outcome {
	case lifecycle.OutcomeSuccess, lifecycle.OutcomeNoChange:
		return ExitCodeSuccess
	case lifecycle.OutcomeValidationError:
		return ExitCodeValidation
	case lifecycle.OutcomeConnectivityError:
		return ExitCodeConnectivity
	case lifecycle.OutcomeStateConfirmationError:
		return ExitCodeStateConfirmation
	case lifecycle.OutcomeResourceUnavailable:
		return ExitCodeResourceUnavailable
	case lifecycle.OutcomeFatal:
		return ExitCodeError
	default:
		return ExitCodeError
	}
}
