package autocomplete

import (
	"sort"
	"testing"
)

// search runs a query and returns sorted ids for stable comparison.
func search(t *testing.T, ix *Index, query string) []string {
	t.Helper()
	ids := ix.Search(query)
	sort.Strings(ids)
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchByPrefix(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "headache")
	ix.AddItem("sym_2", "heartburn")
	ix.AddItem("sym_3", "nausea")

	if got := search(t, ix, "hea"); !equalIDs(got, []string{"sym_1", "sym_2"}) {
		t.Errorf("Search(hea) = %v, want [sym_1 sym_2]", got)
	}
	if got := search(t, ix, "head"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(head) = %v, want [sym_1]", got)
	}
	if got := search(t, ix, "naus"); !equalIDs(got, []string{"sym_3"}) {
		t.Errorf("Search(naus) = %v, want [sym_3]", got)
	}
	if got := ix.Search("zzz"); len(got) != 0 {
		t.Errorf("Search(zzz) = %v, want empty", got)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "Migraine", "HEAD pain")

	if got := search(t, ix, "MIGR"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(MIGR) = %v, want [sym_1]", got)
	}
	if got := search(t, ix, "head"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(head) = %v, want [sym_1]", got)
	}
}

func TestSearchIntersectsTokens(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "lower back pain")
	ix.AddItem("sym_2", "back itch")
	ix.AddItem("sym_3", "chest pain")

	if got := search(t, ix, "back pain"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(back pain) = %v, want [sym_1]", got)
	}
	if got := search(t, ix, "pain"); !equalIDs(got, []string{"sym_1", "sym_3"}) {
		t.Errorf("Search(pain) = %v, want [sym_1 sym_3]", got)
	}
	if got := ix.Search("back nausea"); len(got) != 0 {
		t.Errorf("Search(back nausea) = %v, want empty", got)
	}
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "headache")

	if got := ix.Search(""); len(got) != 0 {
		t.Errorf("Search(\"\") = %v, want empty", got)
	}
	if got := ix.Search("   "); len(got) != 0 {
		t.Errorf("Search(blank) = %v, want empty", got)
	}
}

func TestAddThenRemoveRestoresIndex(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "headache")

	// "headstand" shares the "head" path with "headache"; removing it
	// must not disturb the surviving word.
	ix.AddItem("sym_2", "headstand")
	ix.RemoveItem("sym_2")

	if got := search(t, ix, "head"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(head) after remove = %v, want [sym_1]", got)
	}
	if got := ix.Search("headst"); len(got) != 0 {
		t.Errorf("Search(headst) after remove = %v, want empty", got)
	}
	if got := search(t, ix, "headache"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(headache) after remove = %v, want [sym_1]", got)
	}
}

func TestRemovePreservesSharedWords(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "back pain")
	ix.AddItem("sym_2", "chest pain")

	ix.RemoveItem("sym_1")

	if got := search(t, ix, "pain"); !equalIDs(got, []string{"sym_2"}) {
		t.Errorf("Search(pain) = %v, want [sym_2]", got)
	}
	if got := ix.Search("back"); len(got) != 0 {
		t.Errorf("Search(back) = %v, want empty", got)
	}
}

func TestReAddReplacesWords(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "headache")
	ix.AddItem("sym_1", "migraine")

	if got := ix.Search("head"); len(got) != 0 {
		t.Errorf("Search(head) after rename = %v, want empty", got)
	}
	if got := search(t, ix, "migr"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(migr) after rename = %v, want [sym_1]", got)
	}
}

func TestRemoveMissingItemIsNoOp(t *testing.T) {
	ix := NewIndex()
	ix.AddItem("sym_1", "headache")
	ix.RemoveItem("sym_404")

	if got := search(t, ix, "head"); !equalIDs(got, []string{"sym_1"}) {
		t.Errorf("Search(head) = %v, want [sym_1]", got)
	}
}
