package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
)

// ── Claim model ───────────────────────────────────────────────────

type claimModel struct {
	grove.BaseModel `grove:"table:conductor_claims"`

	Seq          int64     `grove:"seq,pk"`
	CallID       string    `grove:"call_id,notnull"`
	ResourceType string    `grove:"resource_type,notnull"`
	ResourceID   string    `grove:"resource_id,notnull"`
	Operation    string    `grove:"operation,notnull"`
	CreatedAt    time.Time `grove:"created_at,notnull"`
}

func fromClaimModels(models []claimModel) ([]*resource.Claim, error) {
	claims := make([]*resource.Claim, 0, len(models))
	for i := range models {
		m := &models[i]
		callID, err := id.ParseCallID(m.CallID)
		if err != nil {
			return nil, fmt.Errorf("conductor/sqlite: parse call id %q: %w", m.CallID, err)
		}
		claims = append(claims, &resource.Claim{
			CallID:       callID,
			ResourceType: m.ResourceType,
			ResourceID:   m.ResourceID,
			Operation:    resource.Operation(m.Operation),
		})
	}
	return claims, nil
}

// ── Queued call model ─────────────────────────────────────────────

type queuedCallModel struct {
	grove.BaseModel `grove:"table:conductor_queued_calls"`

	CallID     string `grove:"call_id,pk"`
	GroupID    string `grove:"group_id,notnull"`
	Codec      string `grove:"codec,notnull"`
	Descriptor []byte `grove:"descriptor,notnull"`
	// EnqueuedAt is unix nanoseconds so ordering does not depend on the
	// text encoding of timestamps.
	EnqueuedAt int64 `grove:"enqueued_at,notnull"`
}

func toQueuedCallModel(qc *snapshot.QueuedCall) *queuedCallModel {
	return &queuedCallModel{
		CallID:     qc.CallID.String(),
		GroupID:    qc.GroupID.String(),
		Codec:      qc.Codec,
		Descriptor: qc.Descriptor,
		EnqueuedAt: qc.EnqueuedAt.UnixNano(),
	}
}

func fromQueuedCallModel(m *queuedCallModel) (*snapshot.QueuedCall, error) {
	callID, err := id.ParseCallID(m.CallID)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: parse call id %q: %w", m.CallID, err)
	}
	groupID, err := id.ParseOptional(m.GroupID, id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: parse group id %q: %w", m.GroupID, err)
	}
	return &snapshot.QueuedCall{
		CallID:     callID,
		GroupID:    groupID,
		Codec:      m.Codec,
		Descriptor: m.Descriptor,
		EnqueuedAt: time.Unix(0, m.EnqueuedAt).UTC(),
	}, nil
}

// ── Schedule model ────────────────────────────────────────────────

type scheduleModel struct {
	grove.BaseModel `grove:"table:conductor_schedules"`

	ID        string     `grove:"id,pk"`
	Name      string     `grove:"name,notnull,unique"`
	Spec      string     `grove:"spec,notnull"`
	CallName  string     `grove:"call_name,notnull"`
	Args      string     `grove:"args,notnull"`
	Kwargs    string     `grove:"kwargs,notnull"`
	Resources string     `grove:"resources,notnull"`
	Tags      string     `grove:"tags,notnull"`
	Queue     string     `grove:"queue,notnull"`
	Enabled   bool       `grove:"enabled,notnull"`
	LastRunAt *time.Time `grove:"last_run_at"`
	NextRunAt *time.Time `grove:"next_run_at"`
	CreatedAt time.Time  `grove:"created_at,notnull"`
	UpdatedAt time.Time  `grove:"updated_at,notnull"`
}

func toScheduleModel(e *schedule.Entry) (*scheduleModel, error) {
	m := &scheduleModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Spec:      e.Spec,
		CallName:  e.CallName,
		Queue:     e.Queue,
		Enabled:   e.Enabled,
		LastRunAt: e.LastRunAt,
		NextRunAt: e.NextRunAt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	var err error
	if m.Args, err = toJSON(len(e.Args), e.Args); err != nil {
		return nil, err
	}
	if m.Kwargs, err = toJSON(len(e.Kwargs), e.Kwargs); err != nil {
		return nil, err
	}
	if m.Resources, err = toJSON(len(e.Resources), e.Resources); err != nil {
		return nil, err
	}
	if m.Tags, err = toJSON(len(e.Tags), e.Tags); err != nil {
		return nil, err
	}
	return m, nil
}

func fromScheduleModel(m *scheduleModel) (*schedule.Entry, error) {
	parsedID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: parse schedule id %q: %w", m.ID, err)
	}

	e := &schedule.Entry{
		Entity: conductor.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        parsedID,
		Name:      m.Name,
		Spec:      m.Spec,
		CallName:  m.CallName,
		Queue:     m.Queue,
		Enabled:   m.Enabled,
		LastRunAt: m.LastRunAt,
		NextRunAt: m.NextRunAt,
	}
	for _, col := range []struct {
		data string
		dst  any
	}{
		{m.Args, &e.Args},
		{m.Kwargs, &e.Kwargs},
		{m.Resources, &e.Resources},
		{m.Tags, &e.Tags},
	} {
		if col.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.data), col.dst); err != nil {
			return nil, fmt.Errorf("conductor/sqlite: decode schedule %s: %w", m.ID, err)
		}
	}
	return e, nil
}

// ── JSON helpers ──────────────────────────────────────────────────

// toJSON encodes v, mapping empty collections to the empty string.
func toJSON(n int, v any) (string, error) {
	if n == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
