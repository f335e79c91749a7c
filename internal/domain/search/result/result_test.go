package result

import (
	"testing"

	"github.com/docusmart/blacklab/internal/results"
)

func TestNew(t *testing.T) {
	groups := map[string]results.Span{"adj": {Start: 1, End: 2}}
	r := New(3, "story", 1, 3, []string{"the"}, []string{"quick", "fox"}, []string{"jumps"}, groups)

	if r.Doc() != 3 {
		t.Errorf("Doc() = %d", r.Doc())
	}
	if r.DocName() != "story" {
		t.Errorf("DocName() = %q", r.DocName())
	}
	if r.Start() != 1 || r.End() != 3 {
		t.Errorf("span = [%d,%d)", r.Start(), r.End())
	}
	if len(r.Left()) != 1 || len(r.Match()) != 2 || len(r.Right()) != 1 {
		t.Errorf("context = %v %v %v", r.Left(), r.Match(), r.Right())
	}
	if r.Groups()["adj"].Len() != 1 {
		t.Errorf("Groups() = %v", r.Groups())
	}
}

func TestNew_NilFields(t *testing.T) {
	r := New(0, "", 0, 1, nil, nil, nil, nil)
	if r.Left() != nil {
		t.Errorf("Left() = %v, want nil", r.Left())
	}
	if r.Groups() != nil {
		t.Errorf("Groups() = %v, want nil", r.Groups())
	}
}
