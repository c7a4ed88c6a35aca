package tracker

import (
	"strings"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/slices"
)

// StatusLabelPrefix namespaces the label that mirrors the workflow status on
// trackers without a native status field.
const StatusLabelPrefix = "takt:status/"

// TriagedLabel marks an item whose triage output has been applied.
const TriagedLabel = "takt:triaged"

// StatusLabel returns the label encoding a status.
func StatusLabel(s item.Status) string {
	return StatusLabelPrefix + string(s)
}

// StatusFromLabels derives the workflow status from an item's labels.
// Items without a status label are new.
func StatusFromLabels(labels []string) item.Status {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(l, StatusLabelPrefix); ok {
			if s := item.Status(rest); item.ValidStatus(s) {
				return s
			}
		}
	}
	return item.StatusNew
}

// NonStatusLabels filters out status labels, leaving the user-facing ones.
func NonStatusLabels(labels []string) []string {
	return slices.Filter(labels, func(l string) bool {
		return !strings.HasPrefix(l, StatusLabelPrefix)
	})
}
