package call_test

import (
	"testing"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

func TestDescriptor_CodecsPreserveRequest(t *testing.T) {
	dep := id.NewCallID()
	req := call.NewRequest("publish",
		call.WithArgs("repo-1", 3),
		call.WithKwarg("force", true),
		call.WithResource(resource.Read, "repository", "repo-1"),
		call.WithDependency(dep, call.StateSucceeded),
		call.WithGroup(id.NewGroupID()),
		call.WithTags("action:publish"),
		call.WithTimeout(time.Minute),
		call.WithMaxRetries(2),
	)

	for _, name := range []string{call.CodecNameJSON, call.CodecNameMsgpack} {
		t.Run(name, func(t *testing.T) {
			codec := call.GetCodec(name)
			if codec.Name() != name {
				t.Fatalf("Name = %q, want %q", codec.Name(), name)
			}

			data, err := codec.Encode(req.Descriptor())
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			d, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			got, err := d.Request()
			if err != nil {
				t.Fatalf("Request: %v", err)
			}

			if got.ID.String() != req.ID.String() {
				t.Errorf("ID = %s, want %s", got.ID, req.ID)
			}
			if got.GroupID.String() != req.GroupID.String() {
				t.Errorf("GroupID = %s, want %s", got.GroupID, req.GroupID)
			}
			if len(got.Args) != 2 || string(got.Args[0]) != `"repo-1"` {
				t.Errorf("Args = %s", got.Args)
			}
			if string(got.Kwargs["force"]) != "true" {
				t.Errorf("Kwargs = %v", got.Kwargs)
			}
			if got.Resources.Len() != 1 {
				t.Errorf("Resources = %v", got.Resources)
			}
			if !got.Dependencies.Satisfied(dep.String(), call.StateSucceeded) ||
				got.Dependencies.Satisfied(dep.String(), call.StateFailed) {
				t.Errorf("Dependencies = %v", got.Dependencies)
			}
			if got.Timeout != time.Minute || got.MaxRetries != 2 {
				t.Errorf("Timeout/MaxRetries = %v/%d", got.Timeout, got.MaxRetries)
			}
		})
	}
}

func TestDescriptor_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		d    call.Descriptor
	}{
		{"bad id", call.Descriptor{ID: "nope", Name: "x"}},
		{"wrong prefix", call.Descriptor{ID: id.NewGroupID().String(), Name: "x"}},
		{"bad operation", call.Descriptor{
			ID:        id.NewCallID().String(),
			Name:      "x",
			Resources: map[string]map[string][]string{"merge": {"repo": {"r1"}}},
		}},
		{"missing name", call.Descriptor{ID: id.NewCallID().String()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.d.Request(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRequest_ValidateEncodingError(t *testing.T) {
	req := call.NewRequest("x", call.WithKwarg("ch", make(chan int)))
	if err := req.Validate(); err == nil {
		t.Fatal("expected encoding error")
	}
}
