package system

import (
	"fmt"
	"os/exec"
	"runtime"
)

type CommandExecutor interface {
	Execute(command string, args ...string) (string, error)
	GetOS() string
}

type RealExecutor struct{}

func (e *RealExecutor) Execute(command string, args ...string) (string, error) {
	cmd := exec.Command(command, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (e *RealExecutor) GetOS() string {
	return runtime.GOOS
}

// MockExecutor pretends every command succeeds. Used when SENTRYFW_MOCK is
// set so the daemon can be exercised on a workstation without touching the
// host firewall.
type MockExecutor struct{}

func (e *MockExecutor) Execute(command string, args ...string) (string, error) {
	fmt.Printf("[MockExecutor] Executing: %s %v\n", command, args)
	return "Mock Success", nil
}

func (e *MockExecutor) GetOS() string {
	return runtime.GOOS
}

func NewExecutor(mock bool) CommandExecutor {
	if mock {
		return &MockExecutor{}
	}
	return &RealExecutor{}
}
