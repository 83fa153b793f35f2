package views

import (
	"errors"
	"testing"

	"github.com/starford/tempo/internal/testutil"
)

func TestPairs_LiveState(t *testing.T) {
	h := testutil.NewHost()
	h.Edit("/data/a.md")
	r := NewRegistry(h)

	pairs, err := r.Pairs()
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Name != "/data/a.md" {
		t.Fatalf("pairs = %+v", pairs)
	}

	h.SplitEdit("/data/b.md")
	pairs, err = r.Pairs()
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if len(pairs) != 2 || pairs[1].Name != "/data/b.md" {
		t.Errorf("registry should reflect new window: %+v", pairs)
	}
	if n, _ := r.Count(); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestFind(t *testing.T) {
	h := testutil.NewHost()
	h.Edit("/data/a.md")
	w := h.SplitEdit("notes.txt")
	r := NewRegistry(h)

	p, ok, err := r.Find(func(name string) bool { return name == "/work/notes.txt" })
	if err != nil || !ok {
		t.Fatalf("Find = %v, %v", ok, err)
	}
	if p.Window != w {
		t.Errorf("window = %d, want %d", p.Window, w)
	}

	ok, err = r.AnyShowing(func(name string) bool { return name == "/nope" })
	if err != nil || ok {
		t.Errorf("AnyShowing = %v, %v", ok, err)
	}
}

func TestPairs_HostError(t *testing.T) {
	h := testutil.NewHost()
	h.FailOn("WindowBuffer", errors.New("boom"))
	if _, err := NewRegistry(h).Pairs(); err == nil {
		t.Error("expected error")
	}
}
