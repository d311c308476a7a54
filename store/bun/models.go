package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
)

// ── Claim model ───────────────────────────────────────────────────

type claimModel struct {
	bun.BaseModel `bun:"table:conductor_claims"`

	Seq          int64     `bun:"seq,pk,autoincrement"`
	CallID       string    `bun:"call_id,notnull"`
	ResourceType string    `bun:"resource_type,notnull"`
	ResourceID   string    `bun:"resource_id,notnull"`
	Operation    string    `bun:"operation,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toClaimModel(c *resource.Claim) claimModel {
	return claimModel{
		CallID:       c.CallID.String(),
		ResourceType: c.ResourceType,
		ResourceID:   c.ResourceID,
		Operation:    string(c.Operation),
		CreatedAt:    time.Now().UTC(),
	}
}

func fromClaimModel(m *claimModel) (*resource.Claim, error) {
	callID, err := id.ParseCallID(m.CallID)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: parse call id %q: %w", m.CallID, err)
	}
	return &resource.Claim{
		CallID:       callID,
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		Operation:    resource.Operation(m.Operation),
	}, nil
}

func fromClaimModels(models []claimModel) ([]*resource.Claim, error) {
	claims := make([]*resource.Claim, 0, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// ── Queued call model ─────────────────────────────────────────────

type queuedCallModel struct {
	bun.BaseModel `bun:"table:conductor_queued_calls"`

	CallID     string    `bun:"call_id,pk"`
	GroupID    string    `bun:"group_id,notnull,default:''"`
	Codec      string    `bun:"codec,notnull"`
	Descriptor []byte    `bun:"descriptor,notnull,type:bytea"`
	EnqueuedAt time.Time `bun:"enqueued_at,notnull"`
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
		return nil, fmt.Errorf("conductor/bun: parse call id %q: %w", m.CallID, err)
	}
	groupID, err := id.ParseOptional(m.GroupID, id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: parse group id %q: %w", m.GroupID, err)
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
	bun.BaseModel `bun:"table:conductor_schedules"`

	ID        string                     `bun:"id,pk"`
	Name      string                     `bun:"name,notnull,unique"`
	Spec      string                     `bun:"spec,notnull"`
	CallName  string                     `bun:"call_name,notnull"`
	Args      []json.RawMessage          `bun:"args,type:jsonb,nullzero"`
	Kwargs    map[string]json.RawMessage `bun:"kwargs,type:jsonb,nullzero"`
	Resources resource.Map               `bun:"resources,type:jsonb,nullzero"`
	Tags      []string                   `bun:"tags,type:jsonb,nullzero"`
	Queue     string                     `bun:"queue,notnull,default:''"`
	Enabled   bool                       `bun:"enabled,notnull,default:true"`
	LastRunAt *time.Time                 `bun:"last_run_at"`
	NextRunAt *time.Time                 `bun:"next_run_at"`
	CreatedAt time.Time                  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time                  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toScheduleModel(e *schedule.Entry) *scheduleModel {
	return &scheduleModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Spec:      e.Spec,
		CallName:  e.CallName,
		Args:      e.Args,
		Kwargs:    e.Kwargs,
		Resources: e.Resources,
		Tags:      e.Tags,
		Queue:     e.Queue,
		Enabled:   e.Enabled,
		LastRunAt: e.LastRunAt,
		NextRunAt: e.NextRunAt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) (*schedule.Entry, error) {
	parsedID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: parse schedule id %q: %w", m.ID, err)
	}

	return &schedule.Entry{
		Entity: conductor.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        parsedID,
		Name:      m.Name,
		Spec:      m.Spec,
		CallName:  m.CallName,
		Args:      m.Args,
		Kwargs:    m.Kwargs,
		Resources: m.Resources,
		Tags:      m.Tags,
		Queue:     m.Queue,
		Enabled:   m.Enabled,
		LastRunAt: m.LastRunAt,
		NextRunAt: m.NextRunAt,
	}, nil
}
