package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Hits, Count, Group}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "docs", "HITS", "grouped"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestConstants(t *testing.T) {
	if Hits != "hits" {
		t.Errorf("Hits = %q", Hits)
	}
	if Count != "count" {
		t.Errorf("Count = %q", Count)
	}
	if Group != "group" {
		t.Errorf("Group = %q", Group)
	}
}
