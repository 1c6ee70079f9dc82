package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/okian/cohort/internal/domain/model"
)

//go:embed schema.sql
var schemaSQL string

const (
	selectParticipantsSQL = `SELECT id, first_name, last_name, email, role, is_director,
       project_pref_1, project_pref_2, project_pref_3,
       partner_pref_1, partner_pref_2, partner_pref_3,
       experience, is_international
FROM registrations
WHERE semester_id = $1
  AND lower(trim(role)) IN ('manager', 'mgr', 'pm', 'engineer', 'eng', 'se')
ORDER BY id`

	selectProjectsSQL = `SELECT id, name, semester_id FROM projects WHERE semester_id = $1 ORDER BY id`

	updateAssignmentSQL = `UPDATE registrations SET assigned_project_id = $1 WHERE id = $2 AND semester_id = $3`
)

// Postgres is a Source and Sink over the registrations schema.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects through the pgx driver and checks the connection.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// InitSchema creates the tables if they do not exist.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Participants implements Source.
func (p *Postgres) Participants(ctx context.Context, semesterID string) ([]model.Participant, error) {
	rows, err := p.db.QueryContext(ctx, selectParticipantsSQL, semesterID)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var (
			pt                 model.Participant
			role               string
			projects, partners [model.MaxPreferences]sql.NullString
			experience         sql.NullString
		)
		if err := rows.Scan(
			&pt.ID, &pt.FirstName, &pt.LastName, &pt.Email, &role, &pt.Director,
			&projects[0], &projects[1], &projects[2],
			&partners[0], &partners[1], &partners[2],
			&experience, &pt.International,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if pt.Role, err = model.ParseRole(role); err != nil {
			return nil, fmt.Errorf("%w: registration %s: %v", ErrInvalidRecord, pt.ID, err)
		}
		if !pt.Role.Assignable() {
			continue
		}
		if pt.Experience, err = model.ParseExperience(experience.String); err != nil {
			return nil, fmt.Errorf("%w: registration %s: %v", ErrInvalidRecord, pt.ID, err)
		}
		for i := range projects {
			pt.ProjectPrefs[i] = projects[i].String
			pt.PartnerPrefs[i] = partners[i].String
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

// Projects implements Source.
func (p *Postgres) Projects(ctx context.Context, semesterID string) ([]model.Project, error) {
	rows, err := p.db.QueryContext(ctx, selectProjectsSQL, semesterID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var pr model.Project
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.SemesterID); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

// SaveAssignment implements Sink. All rows are written in one transaction.
func (p *Postgres) SaveAssignment(ctx context.Context, semesterID string, a model.Assignment) error {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, updateAssignmentSQL, a[id], id, semesterID)
		if err != nil {
			return fmt.Errorf("assign %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: registration %s", ErrNotFound, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
