package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"aircheck/internal/config"
	"aircheck/internal/deps"
	"aircheck/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes every check for the given config: directory access for the
// output and log paths, and resolvability of the encoder binary.
func Run(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, status := range deps.Check(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: binaryDetail(status),
		})
	}
	return results
}

// Ensure runs all checks and folds any failures into a single configuration
// error naming each one.
func Ensure(cfg *config.Config) error {
	var failures []string
	for _, r := range Run(cfg) {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "ensure",
			strings.Join(failures, "; "), nil)
	}
	return nil
}

// CheckDirectoryAccess verifies that the directory exists and is readable,
// writable, and searchable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func binaryDetail(status deps.Status) string {
	if status.Available {
		return status.Command
	}
	return status.Detail
}
