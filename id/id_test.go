package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/conductor/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CallID", id.NewCallID, "call_"},
		{"GroupID", id.NewGroupID, "grp_"},
		{"ScheduleID", id.NewScheduleID, "sched_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CallID", id.NewCallID, id.ParseCallID},
		{"GroupID", id.NewGroupID, id.ParseGroupID},
		{"ScheduleID", id.NewScheduleID, id.ParseScheduleID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseCallID(id.NewGroupID().String()); err == nil {
		t.Error("ParseCallID accepted a group id")
	}
	if _, err := id.ParseGroupID(id.NewCallID().String()); err == nil {
		t.Error("ParseGroupID accepted a call id")
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixGroup)
	if err != nil {
		t.Fatalf("ParseOptional(empty): %v", err)
	}
	if !got.IsNil() {
		t.Error("expected Nil for empty input")
	}

	g := id.NewGroupID()
	got, err = id.ParseOptional(g.String(), id.PrefixGroup)
	if err != nil {
		t.Fatalf("ParseOptional: %v", err)
	}
	if got.String() != g.String() {
		t.Errorf("mismatch: %q != %q", got.String(), g.String())
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewCallID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewScheduleID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewCallID()
	b := id.NewCallID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewCallID() calls returned the same ID: %q", a.String())
	}
}
