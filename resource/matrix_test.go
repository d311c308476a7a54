package resource_test

import (
	"testing"

	"github.com/xraph/conductor/resource"
)

func TestResolve_Matrix(t *testing.T) {
	tests := []struct {
		existing resource.Operation
		proposed resource.Operation
		want     resource.Response
	}{
		{resource.Create, resource.Create, resource.Accepted},
		{resource.Create, resource.Read, resource.Postponed},
		{resource.Create, resource.Update, resource.Postponed},
		{resource.Create, resource.Delete, resource.Postponed},

		{resource.Read, resource.Create, resource.Postponed},
		{resource.Read, resource.Read, resource.Accepted},
		{resource.Read, resource.Update, resource.Accepted},
		{resource.Read, resource.Delete, resource.Rejected},

		{resource.Update, resource.Create, resource.Postponed},
		{resource.Update, resource.Read, resource.Accepted},
		{resource.Update, resource.Update, resource.Accepted},
		{resource.Update, resource.Delete, resource.Rejected},

		{resource.Delete, resource.Create, resource.Postponed},
		{resource.Delete, resource.Read, resource.Rejected},
		{resource.Delete, resource.Update, resource.Rejected},
		{resource.Delete, resource.Delete, resource.Rejected},
	}

	if len(tests) != 16 {
		t.Fatalf("expected 16 matrix cases, got %d", len(tests))
	}

	for _, tt := range tests {
		t.Run(string(tt.existing)+"/"+string(tt.proposed), func(t *testing.T) {
			if got := resource.Resolve(tt.existing, tt.proposed); got != tt.want {
				t.Errorf("Resolve(%s, %s) = %s, want %s", tt.existing, tt.proposed, got, tt.want)
			}
		})
	}
}

func TestPostponingOperations(t *testing.T) {
	tests := []struct {
		proposed resource.Operation
		want     []resource.Operation
	}{
		{resource.Create, []resource.Operation{resource.Read, resource.Update, resource.Delete}},
		{resource.Read, []resource.Operation{resource.Create}},
		{resource.Update, []resource.Operation{resource.Create}},
		{resource.Delete, []resource.Operation{resource.Create}},
	}

	for _, tt := range tests {
		t.Run(string(tt.proposed), func(t *testing.T) {
			assertOps(t, resource.PostponingOperations(tt.proposed), tt.want)
		})
	}
}

func TestRejectingOperations(t *testing.T) {
	tests := []struct {
		proposed resource.Operation
		want     []resource.Operation
	}{
		{resource.Create, nil},
		{resource.Read, []resource.Operation{resource.Delete}},
		{resource.Update, []resource.Operation{resource.Delete}},
		{resource.Delete, []resource.Operation{resource.Read, resource.Update, resource.Delete}},
	}

	for _, tt := range tests {
		t.Run(string(tt.proposed), func(t *testing.T) {
			assertOps(t, resource.RejectingOperations(tt.proposed), tt.want)
		})
	}
}

func TestResolve_UnknownOperation(t *testing.T) {
	if got := resource.Resolve("merge", resource.Read); got != resource.Rejected {
		t.Errorf("Resolve(unknown) = %s, want rejected", got)
	}
}

func assertOps(t *testing.T, got, want []resource.Operation) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
