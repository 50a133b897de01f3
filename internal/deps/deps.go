package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external program the pipeline runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after its command was looked up on PATH.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Check resolves the requirement's command. A blank command is reported as
// unconfigured rather than missing.
func (r Requirement) Check() Status {
	st := Status{
		Name:        r.Name,
		Command:     strings.TrimSpace(r.Command),
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	switch _, err := exec.LookPath(st.Command); {
	case st.Command == "":
		st.Detail = "command not configured"
	case err != nil:
		st.Detail = fmt.Sprintf("binary %q not found", st.Command)
	default:
		st.Available = true
	}
	return st
}

// CheckBinaries runs Check for every requirement, preserving order.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		out[i] = req.Check()
	}
	return out
}

// Missing returns the required (non-optional) entries that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, st := range statuses {
		if !st.Available && !st.Optional {
			missing = append(missing, st)
		}
	}
	return missing
}
