package ui

import (
	"time"

	"github.com/leapstack-labs/leapml/internal/state"
)

// datastarScript is the client bundle that applies patched elements.
const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"

type field struct {
	label string
	value string
}

// runFields are the populated description-list rows of a run.
func runFields(run *state.Run) []field {
	all := []field{
		{"ID", run.ID},
		{"Command", run.Command},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.Format(time.RFC3339)},
		{"Duration", runDuration(run)},
		{"Artifact", run.ArtifactPath},
		{"Error", run.Error},
	}
	out := all[:0]
	for _, f := range all {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func startedAt(run *state.Run) string {
	return run.StartedAt.Format(time.DateTime)
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}
