package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"riff/internal/gitcmd"
)

// Requirement defines an external dependency riff relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckGit verifies the git binary is present and answers version queries.
// Every plugin operation shells out to git, so this is the one hard
// requirement.
func CheckGit(ctx context.Context, client *gitcmd.Client) Status {
	status := Status{
		Name:        "git",
		Command:     "git",
		Description: "clones and updates plugin repositories",
	}
	if _, err := exec.LookPath("git"); err != nil {
		status.Detail = `binary "git" not found`
		return status
	}
	version, err := client.Version(ctx)
	if err != nil {
		status.Detail = fmt.Sprintf("git is present but not responding: %v", err)
		return status
	}
	status.Available = true
	status.Detail = version
	return status
}
