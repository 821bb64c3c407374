package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"
)

// DefaultPromptPattern matches UCS Manager CLI prompts like "UCS-A#" or
// "UCS-A /fabric/lan #"
var DefaultPromptPattern = regexp.MustCompile(`(?m)[\w\-]+(\s+/[\w\-/ ]*?)?\s*#\s*$`)

// ansiRegex matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// ExpectSession wraps google/goexpect for controller CLI interaction
type ExpectSession struct {
	expecter *expect.GExpect
	promptRE *regexp.Regexp
	timeout  time.Duration
}

// ExpectSessionConfig holds configuration for creating an expect session
type ExpectSessionConfig struct {
	SSHClient    *ssh.Client
	Timeout      time.Duration
	CustomPrompt *regexp.Regexp
}

// NewExpectSession creates a new interactive CLI session using expect
func NewExpectSession(cfg ExpectSessionConfig) (*ExpectSession, error) {
	if cfg.SSHClient == nil {
		return nil, fmt.Errorf("SSH client is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	promptRE := cfg.CustomPrompt
	if promptRE == nil {
		promptRE = DefaultPromptPattern
	}

	// Spawn expect session over SSH
	exp, _, err := expect.SpawnSSH(cfg.SSHClient, cfg.Timeout,
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn SSH expect session: %w", err)
	}

	session := &ExpectSession{
		expecter: exp,
		promptRE: promptRE,
		timeout:  cfg.Timeout,
	}

	// Wait for initial prompt
	if _, _, err := exp.Expect(promptRE, cfg.Timeout); err != nil {
		exp.Close()
		return nil, fmt.Errorf("failed to detect initial prompt: %w", err)
	}

	return session, nil
}

// Execute sends a command and waits for the prompt, returning the output
func (s *ExpectSession) Execute(command string) (string, error) {
	if s.expecter == nil {
		return "", fmt.Errorf("expect session not initialized")
	}

	if err := s.expecter.Send(command + "\n"); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	output, _, err := s.expecter.Expect(s.promptRE, s.timeout)
	if err != nil {
		return output, fmt.Errorf("timeout waiting for prompt after command %q: %w", command, err)
	}

	return cleanOutput(s.promptRE, output, command), nil
}

// cleanOutput removes command echo, prompts and terminal escapes
func cleanOutput(promptRE *regexp.Regexp, output, command string) string {
	lines := strings.Split(StripANSI(output), "\n")
	var cleaned []string

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		// Skip the first line if it's the command echo
		if i == 0 && strings.Contains(line, command) {
			continue
		}
		if promptRE.MatchString(strings.TrimSpace(line)) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// Close closes the expect session
func (s *ExpectSession) Close() error {
	if s.expecter != nil {
		return s.expecter.Close()
	}
	return nil
}
