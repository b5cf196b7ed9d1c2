package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"cdmedia/internal/config"
)

// Requirement defines an external tool cdmedia runs.
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
	Path        string
	Detail      string
}

// Requirements lists the tools an import needs under cfg.
func Requirements(cfg *config.Config) []Requirement {
	binary := "cdrdao"
	if cfg != nil && strings.TrimSpace(cfg.Cdrdao.Binary) != "" {
		binary = cfg.Cdrdao.Binary
	}
	return []Requirement{
		{Name: "cdrdao", Command: binary, Description: "Reads the disc into raw image data and a TOC"},
		{Name: "lsblk", Command: "lsblk", Description: "Reads volume labels for bundle names", Optional: true},
		{Name: "eject", Command: "eject", Description: "Ejects the disc after a successful import", Optional: true},
	}
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
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable statuses that are not optional.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
