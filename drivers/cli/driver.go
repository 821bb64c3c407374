package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nanoncore/nano-ucsm/types"
	"golang.org/x/crypto/ssh"
)

// ShowFaultCommand lists every fault without paging
const ShowFaultCommand = "show fault | no-more"

var faultCodeRE = regexp.MustCompile(`^F\d+$`)

// commandRunner is the part of ExpectSession the driver needs
type commandRunner interface {
	Execute(command string) (string, error)
	Close() error
}

// Driver reads fault severities from the UCS Manager CLI over SSH
type Driver struct {
	config    *types.ControllerConfig
	sshClient *ssh.Client
	session   commandRunner
}

// NewDriver creates a new CLI fault source
func NewDriver(config *types.ControllerConfig) (*Driver, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	// Default SSH port
	if config.Port == 0 {
		config.Port = 22
	}

	// Default timeout
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Driver{
		config: config,
	}, nil
}

// Connect establishes an SSH connection and waits for the CLI prompt
func (d *Driver) Connect(ctx context.Context) error {
	sshConfig := &ssh.ClientConfig{
		User: d.config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.config.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = d.config.Password
				}
				return answers, nil
			}),
		},
		Timeout:         d.config.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // fabric interconnects ship self-generated host keys
	}

	client, err := ssh.Dial("tcp", d.config.Endpoint(22), sshConfig)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return &types.ProtocolError{Op: "ssh login", Description: err.Error()}
		}
		return &types.TransportError{Op: "ssh dial", Err: err}
	}
	d.sshClient = client

	var prompt *regexp.Regexp
	if p, ok := d.config.Metadata["cli_prompt"]; ok {
		prompt, err = regexp.Compile(p)
		if err != nil {
			client.Close()
			d.sshClient = nil
			return fmt.Errorf("invalid cli_prompt %q: %w", p, err)
		}
	}

	session, err := NewExpectSession(ExpectSessionConfig{
		SSHClient:    client,
		Timeout:      d.config.Timeout,
		CustomPrompt: prompt,
	})
	if err != nil {
		client.Close()
		d.sshClient = nil
		return fmt.Errorf("failed to create expect session: %w", err)
	}
	d.session = session

	return nil
}

// Disconnect closes the SSH connection
func (d *Driver) Disconnect(ctx context.Context) error {
	if d.session != nil {
		_ = d.session.Close()
		d.session = nil
	}
	if d.sshClient != nil {
		err := d.sshClient.Close()
		d.sshClient = nil
		return err
	}
	return nil
}

// IsConnected returns true if connected
func (d *Driver) IsConnected() bool {
	return d.session != nil
}

// FaultSeverities runs "show fault" and returns the severity column
func (d *Driver) FaultSeverities(ctx context.Context) ([]string, error) {
	if !d.IsConnected() {
		return nil, types.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := d.session.Execute(ShowFaultCommand)
	if err != nil {
		return nil, fmt.Errorf("command failed: %w", err)
	}
	return ParseFaultOutput(output), nil
}

// ParseFaultOutput extracts severities from "show fault" output:
//
//	Severity  Code     Last Transition Time     ID       Description
//	--------- -------- ------------------------ -------- -----------
//	Major     F0283    2012-01-09T10:27:31.170  1340530  ether VIF 1 / 1 B-42/42 down
func ParseFaultOutput(output string) []string {
	var severities []string
	for _, line := range strings.Split(StripANSI(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !faultCodeRE.MatchString(fields[1]) {
			continue
		}
		severities = append(severities, strings.ToLower(fields[0]))
	}
	return severities
}

// Ensure Driver implements FaultSource
var _ types.FaultSource = (*Driver)(nil)
