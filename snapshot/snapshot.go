// Package snapshot persists calls that have been handed to the task queue
// but have not started yet, so a restarted process can resubmit them.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
)

// QueuedCall is one persisted, not-yet-dispatched call.
type QueuedCall struct {
	CallID     id.CallID  `json:"call_id"`
	GroupID    id.GroupID `json:"group_id,omitempty"`
	Codec      string     `json:"codec"`
	Descriptor []byte     `json:"descriptor"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// New encodes req with codec into a QueuedCall stamped with the current time.
func New(req *call.Request, codec call.Codec) (*QueuedCall, error) {
	data, err := codec.Encode(req.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("encode call %s: %w", req.ID, err)
	}
	return &QueuedCall{
		CallID:     req.ID,
		GroupID:    req.GroupID,
		Codec:      codec.Name(),
		Descriptor: data,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Request decodes the persisted descriptor with the codec it was written in.
func (q *QueuedCall) Request() (*call.Request, error) {
	d, err := call.GetCodec(q.Codec).Decode(q.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("decode call %s: %w", q.CallID, err)
	}
	return d.Request()
}

// Store defines the persistence contract for the queue snapshot.
type Store interface {
	// SaveQueuedCall persists a queued call, replacing any previous entry
	// for the same call id.
	SaveQueuedCall(ctx context.Context, qc *QueuedCall) error

	// DeleteQueuedCall removes the entry for callID. Deleting a missing
	// entry is not an error.
	DeleteQueuedCall(ctx context.Context, callID id.CallID) error

	// ListQueuedCalls returns every entry ordered by EnqueuedAt ascending.
	ListQueuedCalls(ctx context.Context) ([]*QueuedCall, error)

	// ClearQueuedCalls removes every entry.
	ClearQueuedCalls(ctx context.Context) error
}
