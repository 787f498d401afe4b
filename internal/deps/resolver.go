package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultBinaryName is the tunnel executable name without platform suffix.
const DefaultBinaryName = "BrowserStackLocal"

// ErrBinaryNotFound is returned when no candidate location holds an
// executable tunnel binary.
var ErrBinaryNotFound = errors.New("tunnel binary not found")

// Resolver locates the tunnel binary. The lookup order is BinaryPath, then
// BinaryName inside BinaryDir, then BinaryName on PATH.
type Resolver struct {
	BinaryPath string
	BinaryDir  string
	Name       string
}

// BinaryName returns the executable name, with .exe appended on Windows.
func (r Resolver) BinaryName() string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = DefaultBinaryName
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return name
}

// Resolve returns the absolute path of the tunnel binary.
func (r Resolver) Resolve(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if explicit := strings.TrimSpace(r.BinaryPath); explicit != "" {
		if problem := inspect(explicit); problem != ProblemNone {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, problem.describe(explicit))
		}
		return explicit, nil
	}

	name := r.BinaryName()
	if candidate, ok := dirCandidate(r.BinaryDir, name); ok {
		if inspect(candidate) == ProblemNone {
			return candidate, nil
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}

	if dir := strings.TrimSpace(r.BinaryDir); dir != "" {
		return "", fmt.Errorf("%w: %s not in %s or PATH", ErrBinaryNotFound, name, dir)
	}
	return "", fmt.Errorf("%w: %s not on PATH", ErrBinaryNotFound, name)
}

// Requirement describes the tunnel binary for CheckBinaries. Command is the
// resolved path when resolution succeeds and the bare name otherwise.
func (r Resolver) Requirement(ctx context.Context) Requirement {
	command := r.BinaryName()
	if explicit := strings.TrimSpace(r.BinaryPath); explicit != "" {
		command = explicit
	}
	if resolved, err := r.Resolve(ctx); err == nil {
		command = resolved
	}
	return Requirement{
		Name:        "BrowserStack Local",
		Command:     command,
		Purpose:     "Tunnel daemon started by bslocal",
	}
}

func dirCandidate(dir, name string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, name), true
}
