package mongo

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

	Seq          int64     `grove:"seq,pk"               bson:"seq"`
	CallID       string    `grove:"call_id,notnull"      bson:"call_id"`
	ResourceType string    `grove:"resource_type,notnull" bson:"resource_type"`
	ResourceID   string    `grove:"resource_id,notnull"  bson:"resource_id"`
	Operation    string    `grove:"operation,notnull"    bson:"operation"`
	CreatedAt    time.Time `grove:"created_at,notnull"   bson:"created_at"`
}

func fromClaimModels(models []claimModel) ([]*resource.Claim, error) {
	claims := make([]*resource.Claim, 0, len(models))
	for i := range models {
		m := &models[i]
		callID, err := id.ParseCallID(m.CallID)
		if err != nil {
			return nil, fmt.Errorf("conductor/mongo: parse call id %q: %w", m.CallID, err)
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

	CallID     string    `grove:"call_id,pk"         bson:"_id"`
	GroupID    string    `grove:"group_id"           bson:"group_id,omitempty"`
	Codec      string    `grove:"codec,notnull"      bson:"codec"`
	Descriptor []byte    `grove:"descriptor,notnull" bson:"descriptor"`
	EnqueuedAt time.Time `grove:"enqueued_at,notnull" bson:"enqueued_at"`
}

func toQueuedCallModel(qc *snapshot.QueuedCall) *queuedCallModel {
	return &queuedCallModel{
		CallID:     qc.CallID.String(),
		GroupID:    qc.GroupID.String(),
		Codec:      qc.Codec,
		Descriptor: qc.Descriptor,
		EnqueuedAt: qc.EnqueuedAt,
	}
}

func fromQueuedCallModel(m *queuedCallModel) (*snapshot.QueuedCall, error) {
	callID, err := id.ParseCallID(m.CallID)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: parse call id %q: %w", m.CallID, err)
	}
	groupID, err := id.ParseOptional(m.GroupID, id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: parse group id %q: %w", m.GroupID, err)
	}
	return &snapshot.QueuedCall{
		CallID:     callID,
		GroupID:    groupID,
		Codec:      m.Codec,
		Descriptor: m.Descriptor,
		EnqueuedAt: m.EnqueuedAt.UTC(),
	}, nil
}

// ── Schedule model ────────────────────────────────────────────────

type scheduleModel struct {
	grove.BaseModel `grove:"table:conductor_schedules"`

	ID        string       `grove:"id,pk"             bson:"_id"`
	Name      string       `grove:"name,notnull,unique" bson:"name"`
	Spec      string       `grove:"spec,notnull"      bson:"spec"`
	CallName  string       `grove:"call_name,notnull" bson:"call_name"`
	Args      []byte       `grove:"args"              bson:"args,omitempty"`
	Kwargs    []byte       `grove:"kwargs"            bson:"kwargs,omitempty"`
	Resources resource.Map `grove:"resources"         bson:"resources,omitempty"`
	Tags      []string     `grove:"tags"              bson:"tags,omitempty"`
	Queue     string       `grove:"queue"             bson:"queue"`
	Enabled   bool         `grove:"enabled,notnull"   bson:"enabled"`
	LastRunAt *time.Time   `grove:"last_run_at"       bson:"last_run_at,omitempty"`
	NextRunAt *time.Time   `grove:"next_run_at"       bson:"next_run_at,omitempty"`
	CreatedAt time.Time    `grove:"created_at,notnull" bson:"created_at"`
	UpdatedAt time.Time    `grove:"updated_at,notnull" bson:"updated_at"`
}

func toScheduleModel(e *schedule.Entry) (*scheduleModel, error) {
	m := &scheduleModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Spec:      e.Spec,
		CallName:  e.CallName,
		Resources: e.Resources,
		Tags:      e.Tags,
		Queue:     e.Queue,
		Enabled:   e.Enabled,
		LastRunAt: e.LastRunAt,
		NextRunAt: e.NextRunAt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if len(e.Args) > 0 {
		b, err := json.Marshal(e.Args)
		if err != nil {
			return nil, err
		}
		m.Args = b
	}
	if len(e.Kwargs) > 0 {
		b, err := json.Marshal(e.Kwargs)
		if err != nil {
			return nil, err
		}
		m.Kwargs = b
	}
	return m, nil
}

func fromScheduleModel(m *scheduleModel) (*schedule.Entry, error) {
	parsedID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: parse schedule id %q: %w", m.ID, err)
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
		Resources: m.Resources,
		Tags:      m.Tags,
		Queue:     m.Queue,
		Enabled:   m.Enabled,
		LastRunAt: m.LastRunAt,
		NextRunAt: m.NextRunAt,
	}
	if len(m.Args) > 0 {
		if err := json.Unmarshal(m.Args, &e.Args); err != nil {
			return nil, fmt.Errorf("conductor/mongo: decode schedule args: %w", err)
		}
	}
	if len(m.Kwargs) > 0 {
		if err := json.Unmarshal(m.Kwargs, &e.Kwargs); err != nil {
			return nil, fmt.Errorf("conductor/mongo: decode schedule kwargs: %w", err)
		}
	}
	return e, nil
}
