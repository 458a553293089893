package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WriteSnapshot replaces the stored persons, aliases, images and links with
// s and records the run. It returns the run id, generated when s.Run.ID is
// empty. The write happens in one transaction.
func (d *DB) WriteSnapshot(ctx context.Context, s Snapshot) (string, error) {
	run := s.Run
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"links", "images", "aliases", "persons_fts", "persons"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return "", fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, p := range s.Persons {
		if err := insertPerson(ctx, tx, p); err != nil {
			return "", fmt.Errorf("writing person %s: %w", p.ID, err)
		}
	}

	for _, img := range s.Images {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO images (person_id, path, category) VALUES (?, ?, ?)`,
			img.PersonID, img.Path, img.Category,
		); err != nil {
			return "", fmt.Errorf("writing image %s: %w", img.Path, err)
		}
	}

	for _, l := range s.Links {
		types, err := json.Marshal(nonNil(l.Types))
		if err != nil {
			return "", err
		}
		sources, err := json.Marshal(nonNil(l.Sources))
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO links (source_id, target_id, weight, types, sources) VALUES (?, ?, ?, ?, ?)`,
			l.SourceID, l.TargetID, l.Weight, string(types), string(sources),
		); err != nil {
			return "", fmt.Errorf("writing link %s-%s: %w", l.SourceID, l.TargetID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, data_dir, persons, flights, documents, emails, links, skipped_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.DataDir, run.Persons, run.Flights,
		run.Documents, run.Emails, run.Links, run.SkippedRows,
	); err != nil {
		return "", fmt.Errorf("writing run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}
	return run.ID, nil
}

func insertPerson(ctx context.Context, tx *sql.Tx, p Person) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO persons (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Nationality, p.Category, p.EntityType, p.Role, p.Bio, p.Slug,
		p.InBlackBook, p.InNetwork, p.Flights, p.Documents, p.Connections,
	); err != nil {
		return err
	}
	for _, a := range p.Aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO aliases (alias, person_id) VALUES (?, ?)`, a, p.ID,
		); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO persons_fts (id, name, aliases) VALUES (?, ?, ?)`,
		p.ID, p.Name, strings.Join(p.Aliases, " "),
	)
	return err
}

// LatestRun returns the most recent run, or nil if none was recorded.
func (d *DB) LatestRun() (*Run, error) {
	var r Run
	err := d.conn.QueryRow(`
		SELECT id, created_at, data_dir, persons, flights, documents, emails, links, skipped_rows
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1
	`).Scan(&r.ID, &r.CreatedAt, &r.DataDir, &r.Persons, &r.Flights,
		&r.Documents, &r.Emails, &r.Links, &r.SkippedRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
