package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the data room tables and indexes if they don't exist.
//
// Sibling names are unique case-insensitively, per kind, within
// (data_room_id, parent). Root-level rows have a NULL parent, which a plain
// unique index treats as distinct, so roots get their own partial indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

		`CREATE TABLE IF NOT EXISTS ` + tables.DataRooms + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id TEXT NOT NULL,
			name TEXT NOT NULL CHECK (char_length(name) BETWEEN 3 AND 100),
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL CHECK (char_length(name) BETWEEN 1 AND 100),
			data_room_id UUID NOT NULL REFERENCES ` + tables.DataRooms + `(id) ON DELETE CASCADE,
			parent_folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (parent_folder_id IS NULL OR parent_folder_id <> id)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Files + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL CHECK (char_length(name) BETWEEN 1 AND 255),
			mime_type TEXT NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			file_path TEXT NOT NULL,
			data_room_id UUID NOT NULL REFERENCES ` + tables.DataRooms + `(id) ON DELETE CASCADE,
			folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `data_rooms_user ON ` + tables.DataRooms + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `folders_room_parent ON ` + tables.Folders + `(data_room_id, parent_folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `files_room_folder ON ` + tables.Files + `(data_room_id, folder_id)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + prefix + `folders_unique_name ON ` + tables.Folders +
			`(data_room_id, parent_folder_id, lower(name)) WHERE parent_folder_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + prefix + `folders_root_unique_name ON ` + tables.Folders +
			`(data_room_id, lower(name)) WHERE parent_folder_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + prefix + `files_unique_name ON ` + tables.Files +
			`(data_room_id, folder_id, lower(name)) WHERE folder_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + prefix + `files_root_unique_name ON ` + tables.Files +
			`(data_room_id, lower(name)) WHERE folder_id IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// DropTables drops the data room tables, children first
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	all := tables.All()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+all[i]+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", all[i], err)
		}
		logger.Info("dropped table", "table", all[i])
	}
	return nil
}
