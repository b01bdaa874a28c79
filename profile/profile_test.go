package profile

import (
	"slices"
	"testing"
)

func TestNew_Options(t *testing.T) {
	p := New(WithMode("cpu"), WithPath("/tmp/prof"), WithQuiet(true))

	want := Profiler{Mode: "cpu", Path: "/tmp/prof", Quiet: true}
	if p != want {
		t.Errorf("New() = %+v, want %+v", p, want)
	}

	if q := WithMode("")(p); q.Mode != "" || q.Path != p.Path {
		t.Errorf("WithMode(\"\") = %+v", q)
	}
}

func TestProfiler_Start_NoMode(t *testing.T) {
	stop := New(WithPath(t.TempDir())).Start()

	if _, ok := stop.(ignore); !ok {
		t.Errorf("Start() without mode = %T, want no-op", stop)
	}

	stop.Stop()
}

func TestProfiler_Start_UnknownMode(t *testing.T) {
	stop := New(WithMode("bogus"), WithPath(t.TempDir())).Start()

	if _, ok := stop.(ignore); !ok {
		t.Errorf("Start() with unknown mode = %T, want no-op", stop)
	}

	stop.Stop()
}

func TestModes(t *testing.T) {
	modes := Modes()

	if !Enabled {
		if len(modes) != 0 {
			t.Errorf("Modes() = %v, want none without %s tag", modes, Tag)
		}

		return
	}

	if !slices.IsSorted(modes) || !slices.Contains(modes, "cpu") {
		t.Errorf("Modes() = %v", modes)
	}
}
