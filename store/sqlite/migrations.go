package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the conductor sqlite store.
var Migrations = migrate.NewGroup("conductor")

func init() {
	Migrations.MustRegister(
		// 001: Create claims and queued calls tables.
		&migrate.Migration{
			Name:    "create_claims_and_queued_calls",
			Version: "20250101120000",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS conductor_claims (
						seq           INTEGER PRIMARY KEY AUTOINCREMENT,
						call_id       TEXT NOT NULL,
						resource_type TEXT NOT NULL,
						resource_id   TEXT NOT NULL,
						operation     TEXT NOT NULL,
						created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_conductor_claims_resource
						ON conductor_claims (resource_type, resource_id)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_conductor_claims_call
						ON conductor_claims (call_id)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS conductor_queued_calls (
						call_id     TEXT PRIMARY KEY,
						group_id    TEXT NOT NULL DEFAULT '',
						codec       TEXT NOT NULL,
						descriptor  BLOB NOT NULL,
						enqueued_at INTEGER NOT NULL
					)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_conductor_queued_calls_enqueued
						ON conductor_queued_calls (enqueued_at)`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conductor_queued_calls`)
				if err != nil {
					return err
				}
				_, err = exec.Exec(ctx, `DROP TABLE IF EXISTS conductor_claims`)
				return err
			},
		},

		// 002: Create schedules table.
		&migrate.Migration{
			Name:    "create_schedules_table",
			Version: "20250101120001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS conductor_schedules (
						id          TEXT PRIMARY KEY,
						name        TEXT NOT NULL UNIQUE,
						spec        TEXT NOT NULL,
						call_name   TEXT NOT NULL,
						args        TEXT NOT NULL DEFAULT '',
						kwargs      TEXT NOT NULL DEFAULT '',
						resources   TEXT NOT NULL DEFAULT '',
						tags        TEXT NOT NULL DEFAULT '',
						queue       TEXT NOT NULL DEFAULT '',
						enabled     INTEGER NOT NULL DEFAULT 1,
						last_run_at TEXT,
						next_run_at TEXT,
						created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conductor_schedules`)
				return err
			},
		},
	)
}
