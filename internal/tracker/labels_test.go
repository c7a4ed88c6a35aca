package tracker

import (
	"testing"

	"github.com/valksor/go-taktwerk/internal/item"
)

func TestStatusLabelRoundTrip(t *testing.T) {
	statuses := []item.Status{
		item.StatusNew, item.StatusBacklog, item.StatusReady,
		item.StatusInProgress, item.StatusInReview,
		item.StatusDone, item.StatusBlocked, item.StatusError,
	}
	for _, s := range statuses {
		if got := StatusFromLabels([]string{"bug", StatusLabel(s)}); got != s {
			t.Errorf("StatusFromLabels(StatusLabel(%s)) = %s", s, got)
		}
	}
}

func TestStatusFromLabelsDefaults(t *testing.T) {
	if got := StatusFromLabels(nil); got != item.StatusNew {
		t.Errorf("no labels means new, got %s", got)
	}
	if got := StatusFromLabels([]string{"bug", "enhancement"}); got != item.StatusNew {
		t.Errorf("no status label means new, got %s", got)
	}
	if got := StatusFromLabels([]string{StatusLabelPrefix + "bogus"}); got != item.StatusNew {
		t.Errorf("unknown status value is ignored, got %s", got)
	}
}

func TestNonStatusLabels(t *testing.T) {
	in := []string{"bug", StatusLabel(item.StatusReady), TriagedLabel, StatusLabelPrefix + "bogus"}
	got := NonStatusLabels(in)
	if len(got) != 2 || got[0] != "bug" || got[1] != TriagedLabel {
		t.Errorf("NonStatusLabels = %v", got)
	}
}
