package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valksor/go-taktwerk/internal/slices"
)

// Mode is the comparison rule applied to one tree field.
type Mode string

const (
	ModeExact    Mode = "exact"    // values must be equal
	ModeGTE      Mode = "gte"      // actual must be >= expected
	ModeLTE      Mode = "lte"      // actual must be <= expected
	ModeSuperset Mode = "superset" // actual must contain every expected element
	ModeFlag     Mode = "flag"     // expected true requires actual true
	ModeLog      Mode = "log"      // expected entries appear in order; appended extras tolerated
)

// FieldDiff describes one field where actual state diverged from expected.
type FieldDiff struct {
	Path     string
	Mode     Mode
	Expected string
	Actual   string
}

func (d FieldDiff) String() string {
	return fmt.Sprintf("%s [%s]: expected %s, got %s", d.Path, d.Mode, d.Expected, d.Actual)
}

// CompareTree compares expected vs actual field by field and returns every
// divergence. A nil slice means the trees match under the tolerant rules.
func CompareTree(expected, actual *StateTree) []FieldDiff {
	return compareAt("", expected, actual)
}

func compareAt(path string, expected, actual *StateTree) []FieldDiff {
	var diffs []FieldDiff
	add := func(field string, mode Mode, exp, act string) {
		diffs = append(diffs, FieldDiff{Path: join(path, field), Mode: mode, Expected: exp, Actual: act})
	}

	if actual == nil {
		add("", ModeExact, "present", "missing")
		return diffs
	}

	if expected.Status != actual.Status {
		add("status", ModeExact, string(expected.Status), string(actual.Status))
	}
	if expected.Open != actual.Open {
		add("open", ModeExact, strconv.FormatBool(expected.Open), strconv.FormatBool(actual.Open))
	}
	if actual.Iteration < expected.Iteration {
		add("iteration", ModeGTE, strconv.Itoa(expected.Iteration), strconv.Itoa(actual.Iteration))
	}
	if actual.Unresolved > expected.Unresolved {
		add("unresolved", ModeLTE, strconv.Itoa(expected.Unresolved), strconv.Itoa(actual.Unresolved))
	}
	if missing := missingFrom(expected.Labels, actual.Labels); len(missing) > 0 {
		add("labels", ModeSuperset, strings.Join(missing, ","), strings.Join(actual.Labels, ","))
	}
	if missing := missingFrom(expected.Assignees, actual.Assignees); len(missing) > 0 {
		add("assignees", ModeSuperset, strings.Join(missing, ","), strings.Join(actual.Assignees, ","))
	}
	if expected.HasDescription && !actual.HasDescription {
		add("has_description", ModeFlag, "true", "false")
	}
	if expected.HasBranch && !actual.HasBranch {
		add("has_branch", ModeFlag, "true", "false")
	}
	if !logContains(actual.History, expected.History) {
		add("history", ModeLog, strings.Join(expected.History, ","), strings.Join(actual.History, ","))
	}

	for id, expChild := range expected.Children {
		actChild := actual.Children[id]
		diffs = append(diffs, compareAt(join(path, "children/"+id), expChild, actChild)...)
	}
	// Extra actual children are tolerated: another collaborator may have
	// created items the prediction did not know about.

	return diffs
}

// CompareState compares the refreshed actual tree against an expected union.
// It passes when any candidate matches with zero diffs; otherwise it returns
// the diffs of the nearest (fewest-diff) candidate and that candidate's
// index, for diagnostics.
func CompareState(exp ExpectedState, actual *StateTree) (ok bool, nearest []FieldDiff, nearestIdx int) {
	if len(exp.Candidates) == 0 {
		return true, nil, -1
	}
	nearestIdx = -1
	for i, cand := range exp.Candidates {
		diffs := CompareTree(cand, actual)
		if len(diffs) == 0 {
			return true, nil, i
		}
		if nearestIdx == -1 || len(diffs) < len(nearest) {
			nearest = diffs
			nearestIdx = i
		}
	}
	return false, nearest, nearestIdx
}

// missingFrom returns expected elements absent from actual.
func missingFrom(expected, actual []string) []string {
	return slices.Difference(expected, actual)
}

// logContains reports whether expected entries appear in actual in the same
// relative order. Entries appended by other collaborators are tolerated.
func logContains(actual, expected []string) bool {
	i := 0
	for _, a := range actual {
		if i < len(expected) && a == expected[i] {
			i++
		}
	}
	return i == len(expected)
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	if field == "" {
		return path
	}
	return path + "/" + field
}
