package variable

import (
	"errors"
	"slices"
	"testing"

	"github.com/akashmane1598/hyperdash/model"
)

func TestDeserializer_CanDeserialize(t *testing.T) {
	f := newFixture(t)
	d := NewDeserializer(f.mgr)

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"expression", "${a}", true},
		{"template", "x ${a} y", true},
		{"plain string", "plain", false},
		{"escaped", `\${a}`, false},
		{"number", 5, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.CanDeserialize(tt.in); got != tt.want {
				t.Errorf("CanDeserialize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSerializer_RoundTrip(t *testing.T) {
	f := newFixture(t)
	d := NewDeserializer(f.mgr)
	s := NewSerializer(f.mgr)

	f.set(t, "name", "World", f.root)

	props := model.NewProperties(f.root)
	loc := props.Location("greeting")
	plain := props.Location("plain")

	v, err := d.Deserialize("Hi ${name}", loc)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if v != "Hi World" {
		t.Errorf("expected resolved value, got %v", v)
	}

	if !s.CanSerialize(loc) {
		t.Fatal("expected reference location to be serializable")
	}

	if s.CanSerialize(plain) {
		t.Error("expected plain location not to be serializable")
	}

	got, err := s.Serialize(loc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if got != "Hi ${name}" {
		t.Errorf("expected original expression, got %q", got)
	}

	ref, _ := f.mgr.Reference(loc)
	if removed := ref.Unresolve().Removed; !slices.Equal(removed, []string{"name"}) {
		t.Errorf("expected dependencies kept after Serialize, got %v", removed)
	}

	if _, err := s.Serialize(plain); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered for plain location, got %v", err)
	}

	f.set(t, "name", "Again", f.root)

	if loc.Get() != "Hi Again" {
		t.Errorf("expected reference to stay live after Serialize, got %v", loc.Get())
	}
}
