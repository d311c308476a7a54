package redis

// Redis key naming conventions for conductor data. All keys share a
// prefix, "conductor:" unless overridden with WithKeyPrefix.

const defaultKeyspace keyspace = "conductor:"

type keyspace string

// ── Claim keys ──

// resource returns the sorted set of claims on one resource:
// conductor:resource:{type}:{id}. Members are "{callID}|{operation}",
// scored by claim sequence.
func (k keyspace) resource(typ, rid string) string {
	return string(k) + "resource:" + typ + ":" + rid
}

// callClaims returns the set of claims held by a call:
// conductor:call_claims:{callID}. Members are JSON [type, id, operation].
func (k keyspace) callClaims(callID string) string {
	return string(k) + "call_claims:" + callID
}

// claimCalls is the set of call ids currently holding claims.
func (k keyspace) claimCalls() string { return string(k) + "claim_calls" }

// claimSeq is the counter that orders claims by insertion.
func (k keyspace) claimSeq() string { return string(k) + "claim_seq" }

// ── Queued call keys ──

// queued returns the hash for one queued call: conductor:queued:{callID}.
func (k keyspace) queued(callID string) string { return string(k) + "queued:" + callID }

// queuedIDs is the sorted set of queued call ids scored by enqueue time.
func (k keyspace) queuedIDs() string { return string(k) + "queued_ids" }

// ── Schedule keys ──

// schedule returns the key for a schedule entry: conductor:schedule:{id}.
func (k keyspace) schedule(id string) string { return string(k) + "schedule:" + id }

// scheduleIDs is the Set tracking all schedule IDs for enumeration.
func (k keyspace) scheduleIDs() string { return string(k) + "schedule_ids" }

// scheduleNames maps schedule names to IDs for duplicate detection.
func (k keyspace) scheduleNames() string { return string(k) + "schedule_names" }
