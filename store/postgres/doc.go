// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: single-round-trip claim lookup via unnest, transactional
// batch inserts, embedded SQL migrations.
package postgres
