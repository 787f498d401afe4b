package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement names an external binary bslocal runs.
type Requirement struct {
	Name    string
	Command string
	Purpose string
}

// Problem classifies why a requirement is unavailable.
type Problem int

const (
	ProblemNone Problem = iota
	ProblemNotConfigured
	ProblemMissing
	ProblemNotExecutable
)

// Status is the outcome of checking one Requirement. Path is the resolved
// location and is only set when the binary is available.
type Status struct {
	Requirement
	Path      string
	Available bool
	Problem   Problem
	Detail    string
}

// CheckBinaries reports availability for each requirement. A command with a
// path separator is checked in place, a bare name is looked up on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Problem = ProblemNotConfigured
		status.Detail = "command not configured"
		return status
	}

	path := req.Command
	if !hasPathSeparator(path) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			status.Problem = ProblemMissing
			status.Detail = fmt.Sprintf("binary %q not found on PATH", path)
			return status
		}
		path = resolved
	}
	if problem := inspect(path); problem != ProblemNone {
		status.Problem = problem
		status.Detail = problem.describe(path)
		return status
	}
	status.Path = path
	status.Available = true
	return status
}

// inspect reports whether path is a regular file the current user may run.
func inspect(path string) Problem {
	info, err := os.Stat(path)
	if err != nil {
		return ProblemMissing
	}
	if info.IsDir() || !isExecutable(path) {
		return ProblemNotExecutable
	}
	return ProblemNone
}

func (p Problem) describe(path string) string {
	switch p {
	case ProblemNotConfigured:
		return "command not configured"
	case ProblemMissing:
		return fmt.Sprintf("binary %q not found", path)
	case ProblemNotExecutable:
		return fmt.Sprintf("binary %q is not executable by the current user", path)
	default:
		return ""
	}
}

func hasPathSeparator(cmd string) bool {
	return strings.ContainsRune(cmd, '/') || strings.ContainsRune(cmd, filepath.Separator)
}
