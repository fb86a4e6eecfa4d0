package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"aircheck/internal/config"
)

// Requirement defines an external binary aircheck shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external binaries for the given config. The
// encoder is the only hard requirement; everything else this tool does is
// in-process.
func Requirements(cfg *config.Config) []Requirement {
	command := "ffmpeg"
	if cfg != nil {
		command = cfg.EncoderBinary()
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     command,
			Description: "Writes the output file from fetched segments",
		},
	}
}

// Check evaluates the full requirement set for the given config.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
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
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}
