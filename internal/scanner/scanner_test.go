package scanner

import "testing"

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	layout, err := reg.Resolve("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if layout.TitleSelector != ".courseblocktitle" || layout.DescriptionSelector != ".courseblockdesc" {
		t.Fatalf("unexpected default layout: %+v", layout)
	}

	legacy, err := reg.Resolve("CourseLeaf-Legacy")
	if err != nil {
		t.Fatalf("resolve legacy: %v", err)
	}
	if legacy.Name != LayoutCourseLeafLegacy {
		t.Fatalf("unexpected legacy layout: %+v", legacy)
	}

	if _, err := reg.Resolve("banner"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(Layout{Name: LayoutCourseLeaf, TitleSelector: "h3", DescriptionSelector: "p"})

	layout, err := reg.Resolve(LayoutCourseLeaf)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if layout.TitleSelector != "h3" {
		t.Fatalf("expected override, got %+v", layout)
	}
	if got := len(reg.Names()); got != 2 {
		t.Fatalf("expected 2 layouts, got %d", got)
	}
}
