package visibility

import (
	"testing"

	"github.com/starford/tempo/internal/preview"
	"github.com/starford/tempo/internal/testutil"
	"github.com/starford/tempo/internal/views"
)

func TestAnyTrackedVisible(t *testing.T) {
	root := testutil.TestRoot(t)
	day := testutil.WriteDay(t, root, "jan/notes.md", "- 09:00-10:00 a: b")

	h := testutil.NewHost()
	h.Edit(day)
	a := New(views.NewRegistry(h))

	ok, err := a.AnyTrackedVisible(root)
	if err != nil || !ok {
		t.Errorf("AnyTrackedVisible = %v, %v; want true", ok, err)
	}
}

func TestAnyTrackedVisible_OnlyOutsideFiles(t *testing.T) {
	root := testutil.TestRoot(t)
	other := testutil.TestRoot(t)
	outside := testutil.WriteDay(t, other, "outside.md", "x")

	h := testutil.NewHost()
	h.Edit(outside)
	h.SplitEdit("")
	a := New(views.NewRegistry(h))

	ok, err := a.AnyTrackedVisible(root)
	if err != nil || ok {
		t.Errorf("AnyTrackedVisible = %v, %v; want false", ok, err)
	}
}

func TestAnyTrackedVisible_PreviewExcluded(t *testing.T) {
	root := testutil.TestRoot(t)
	day := testutil.WriteDay(t, root, "day.md", "- 09:00-10:00 a: b")

	h := testutil.NewHost()
	h.Cwd = root
	h.Edit(day)
	s := preview.New(h, views.NewRegistry(h), preview.Options{}, testutil.Logger())
	if err := s.CreateOrUpdate("summary"); err != nil {
		t.Fatal(err)
	}
	a := New(views.NewRegistry(h))
	if ok, _ := a.AnyTrackedVisible(root); !ok {
		t.Fatal("day file next to the preview should be visible")
	}

	// Leave only the preview, whose name resolves below the root.
	if err := h.CloseWindow(h.Current(), false); err != nil {
		t.Fatal(err)
	}
	wins, _ := h.Windows()
	if len(wins) != 1 {
		t.Fatalf("windows = %d, want 1", len(wins))
	}
	ok, err := a.AnyTrackedVisible(root)
	if err != nil || ok {
		t.Errorf("AnyTrackedVisible = %v, %v; want false", ok, err)
	}
}
