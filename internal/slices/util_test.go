package slices

import (
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	got := Filter([]int{1, 2, 3, 4, 5}, even)
	if !reflect.DeepEqual(got, []int{2, 4}) {
		t.Errorf("Filter() = %v, want [2 4]", got)
	}

	if got := Filter(nil, even); len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty", got)
	}
}

func TestAnyAll(t *testing.T) {
	positive := func(n int) bool { return n > 0 }

	if !Any([]int{-1, 0, 3}, positive) {
		t.Error("Any should find the positive element")
	}
	if Any([]int{-1, -2}, positive) {
		t.Error("Any should be false without a match")
	}
	if Any(nil, positive) {
		t.Error("Any(nil) should be false")
	}

	if !All([]int{1, 2, 3}, positive) {
		t.Error("All should hold for all-positive input")
	}
	if All([]int{1, -2, 3}, positive) {
		t.Error("All should fail on the negative element")
	}
	if !All(nil, positive) {
		t.Error("All(nil) is vacuously true")
	}
}

func TestFind(t *testing.T) {
	v, ok := Find([]string{"a", "bb", "ccc"}, func(s string) bool { return len(s) == 2 })
	if !ok || v != "bb" {
		t.Errorf("Find() = %q, %v; want \"bb\", true", v, ok)
	}

	v, ok = Find([]string{"a"}, func(s string) bool { return len(s) == 2 })
	if ok || v != "" {
		t.Errorf("Find() = %q, %v; want zero value, false", v, ok)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"a", "b", "a", "c", "b"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Unique() = %v, want first occurrences in order", got)
	}
}

func TestDifference(t *testing.T) {
	got := Difference([]string{"a", "b", "c"}, []string{"b"})
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Difference() = %v, want [a c]", got)
	}

	if got := Difference([]string{"a"}, []string{"a"}); got != nil {
		t.Errorf("Difference() = %v, want nil when nothing remains", got)
	}
	if got := Difference(nil, []string{"a"}); got != nil {
		t.Errorf("Difference(nil, b) = %v, want nil", got)
	}
}

func TestCount(t *testing.T) {
	got := Count([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}
