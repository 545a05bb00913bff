package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medhirweb/salespipe/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS stages (
	id         TEXT PRIMARY KEY,
	key        TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	form_type  TEXT NOT NULL DEFAULT 'none',
	position   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	contact_number         TEXT NOT NULL DEFAULT '',
	email                  TEXT NOT NULL DEFAULT '',
	stage_id               TEXT NOT NULL REFERENCES stages(id),
	status                 TEXT NOT NULL DEFAULT 'Active',
	reason_for_junk        TEXT NOT NULL DEFAULT '',
	reason_for_lost        TEXT NOT NULL DEFAULT '',
	assign_sales_person_id TEXT NOT NULL DEFAULT '',
	assign_designer_id     TEXT NOT NULL DEFAULT '',
	is_frozen              INTEGER NOT NULL DEFAULT 0,
	freeze                 TEXT,
	conversion             TEXT,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS activities (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	due_date   DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	attachment TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id          TEXT PRIMARY KEY,
	lead_id     TEXT NOT NULL,
	activity_id TEXT,
	action      TEXT NOT NULL,
	metadata    TEXT,
	ts          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_stage_id ON leads(stage_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_activities_lead_id ON activities(lead_id);
CREATE INDEX IF NOT EXISTS idx_activities_due ON activities(status, due_date);
CREATE INDEX IF NOT EXISTS idx_activity_logs_lead_id ON activity_logs(lead_id, ts);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Stages ---

func (s *SQLiteStore) CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error) {
	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}
	stage.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stages (id, key, name, color, form_type, position, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stage.ID, stage.Key, stage.Name, stage.Color, string(stage.FormType), stage.Position, stage.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, eris.Wrapf(ErrDuplicateKey, "sqlite: create stage %s", stage.Key)
		}
		return nil, eris.Wrap(err, "sqlite: insert stage")
	}
	return &stage, nil
}

func (s *SQLiteStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, name, color, form_type, position, created_at FROM stages ORDER BY position, key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stages")
	}
	defer rows.Close()

	var stages []model.Stage
	for rows.Next() {
		var st model.Stage
		if err := rows.Scan(&st.ID, &st.Key, &st.Name, &st.Color, &st.FormType, &st.Position, &st.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage")
		}
		stages = append(stages, st)
	}
	return stages, eris.Wrap(rows.Err(), "sqlite: list stages iterate")
}

func (s *SQLiteStore) GetStage(ctx context.Context, stageID string) (*model.Stage, error) {
	return s.getStageWhere(ctx, "id = ?", stageID, "stage "+stageID)
}

func (s *SQLiteStore) GetStageByKey(ctx context.Context, key string) (*model.Stage, error) {
	return s.getStageWhere(ctx, "key = ?", key, "stage key "+key)
}

func (s *SQLiteStore) getStageWhere(ctx context.Context, where, arg, desc string) (*model.Stage, error) {
	var st model.Stage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, key, name, color, form_type, position, created_at FROM stages WHERE `+where,
		arg,
	).Scan(&st.ID, &st.Key, &st.Name, &st.Color, &st.FormType, &st.Position, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: %s", desc)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", desc)
	}
	return &st, nil
}

func (s *SQLiteStore) DeleteStage(ctx context.Context, stageID string) error {
	var attached int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE stage_id = ?`, stageID,
	).Scan(&attached)
	if err != nil {
		return eris.Wrapf(err, "sqlite: count leads in stage %s", stageID)
	}
	if attached > 0 {
		return eris.Wrapf(ErrStageInUse, "sqlite: delete stage %s", stageID)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, stageID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete stage %s", stageID)
	}
	return checkRowsAffected(res, "stage", stageID)
}

// --- Leads ---

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusActive
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, contact_number, email, stage_id, status, assign_sales_person_id, assign_designer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.ContactNumber, lead.Email, lead.StageID, string(lead.Status),
		lead.AssignSalesPersonID, lead.AssignDesignerID, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, leadID,
	)
	lead, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: lead %s", leadID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", leadID)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.StageID != "" {
		query += ` AND stage_id = ?`
		args = append(args, filter.StageID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AssignSalesPersonID != "" {
		query += ` AND assign_sales_person_id = ?`
		args = append(args, filter.AssignSalesPersonID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadFields(ctx context.Context, leadID string, upd model.LeadUpdate) error {
	query := `UPDATE leads SET updated_at = ?`
	args := []any{time.Now().UTC()}

	set := func(col string, val *string) {
		if val == nil {
			return
		}
		query += `, ` + col + ` = ?`
		args = append(args, *val)
	}
	set("name", upd.Name)
	set("contact_number", upd.ContactNumber)
	set("email", upd.Email)
	set("assign_sales_person_id", upd.AssignSalesPersonID)
	set("assign_designer_id", upd.AssignDesignerID)

	query += ` WHERE id = ?`
	args = append(args, leadID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", leadID)
	}
	return checkRowsAffected(res, "lead", leadID)
}

// --- Transitions ---

func (s *SQLiteStore) transition(ctx context.Context, leadID, mutation string, args []any, entry model.ActivityLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin transition")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, mutation, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition lead %s", leadID)
	}
	if err := checkRowsAffected(res, "lead", leadID); err != nil {
		return err
	}

	if err := sqliteAppendLogTx(ctx, tx, entry); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit transition")
}

func sqliteAppendLogTx(ctx context.Context, tx *sql.Tx, entry model.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal log metadata")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO activity_logs (id, lead_id, activity_id, action, metadata, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.LeadID, nullable(entry.ActivityID), string(entry.Action), string(metaJSON), entry.Timestamp,
	)
	return eris.Wrap(err, "sqlite: append log")
}

func (s *SQLiteStore) MoveLeadToStage(ctx context.Context, leadID, stageID string, entry model.ActivityLog) error {
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = ?, updated_at = ? WHERE id = ?`,
		[]any{stageID, time.Now().UTC(), leadID},
		entry,
	)
}

func (s *SQLiteStore) SetLeadOutcome(ctx context.Context, leadID, stageID string, status model.LeadStatus, reason string, entry model.ActivityLog) error {
	reasonCol := "reason_for_lost"
	if status == model.LeadStatusJunk {
		reasonCol = "reason_for_junk"
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = ?, status = ?, `+reasonCol+` = ?, updated_at = ? WHERE id = ?`,
		[]any{stageID, string(status), reason, time.Now().UTC(), leadID},
		entry,
	)
}

func (s *SQLiteStore) FreezeLead(ctx context.Context, leadID, stageID string, details model.FreezeDetails, entry model.ActivityLog) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal freeze details")
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = ?, status = ?, is_frozen = 1, freeze = ?, updated_at = ? WHERE id = ?`,
		[]any{stageID, string(model.LeadStatusFrozen), string(detailsJSON), time.Now().UTC(), leadID},
		entry,
	)
}

func (s *SQLiteStore) ConvertLead(ctx context.Context, leadID, stageID string, details model.ConversionDetails, entry model.ActivityLog) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal conversion details")
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = ?, status = ?, conversion = ?, updated_at = ? WHERE id = ?`,
		[]any{stageID, string(model.LeadStatusConverted), string(detailsJSON), time.Now().UTC(), leadID},
		entry,
	)
}

// --- Activities ---

func (s *SQLiteStore) CreateActivity(ctx context.Context, activity model.Activity) (*model.Activity, error) {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.Status == "" {
		activity.Status = model.ActivityStatusPending
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, lead_id, type, title, due_date, status, attachment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.LeadID, activity.Type, activity.Title, activity.DueDate,
		string(activity.Status), activity.Attachment, activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert activity")
	}
	return &activity, nil
}

func (s *SQLiteStore) GetActivity(ctx context.Context, activityID string) (*model.Activity, error) {
	var a model.Activity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at FROM activities WHERE id = ?`,
		activityID,
	).Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.DueDate, &a.Status, &a.Attachment, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: activity %s", activityID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get activity %s", activityID)
	}
	return &a, nil
}

func (s *SQLiteStore) UpdateActivity(ctx context.Context, activity model.Activity) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET type = ?, title = ?, due_date = ?, attachment = ?, updated_at = ? WHERE id = ?`,
		activity.Type, activity.Title, activity.DueDate, activity.Attachment, time.Now().UTC(), activity.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update activity %s", activity.ID)
	}
	return checkRowsAffected(res, "activity", activity.ID)
}

func (s *SQLiteStore) CompleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	return s.activityTx(ctx, activityID,
		`UPDATE activities SET status = ?, updated_at = ? WHERE id = ?`,
		[]any{string(model.ActivityStatusDone), time.Now().UTC(), activityID},
		entry,
	)
}

func (s *SQLiteStore) DeleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	return s.activityTx(ctx, activityID,
		`DELETE FROM activities WHERE id = ?`,
		[]any{activityID},
		entry,
	)
}

func (s *SQLiteStore) activityTx(ctx context.Context, activityID, mutation string, args []any, entry model.ActivityLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin activity tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, mutation, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mutate activity %s", activityID)
	}
	if err := checkRowsAffected(res, "activity", activityID); err != nil {
		return err
	}

	if err := sqliteAppendLogTx(ctx, tx, entry); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit activity tx")
}

func (s *SQLiteStore) ListActivities(ctx context.Context, leadID string) ([]model.Activity, error) {
	return s.queryActivities(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at
		 FROM activities WHERE lead_id = ? ORDER BY due_date`,
		leadID,
	)
}

func (s *SQLiteStore) ListOverdueActivities(ctx context.Context, asOf time.Time) ([]model.Activity, error) {
	return s.queryActivities(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at
		 FROM activities WHERE status = 'pending' AND due_date < ? ORDER BY due_date`,
		asOf,
	)
}

func (s *SQLiteStore) queryActivities(ctx context.Context, query string, args ...any) ([]model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list activities")
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.DueDate, &a.Status, &a.Attachment, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		activities = append(activities, a)
	}
	return activities, eris.Wrap(rows.Err(), "sqlite: list activities iterate")
}

// --- Audit log ---

func (s *SQLiteStore) AppendLog(ctx context.Context, entry model.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal log metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, lead_id, activity_id, action, metadata, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.LeadID, nullable(entry.ActivityID), string(entry.Action), string(metaJSON), entry.Timestamp,
	)
	return eris.Wrap(err, "sqlite: append log")
}

func (s *SQLiteStore) ListLogs(ctx context.Context, leadID string) ([]model.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, activity_id, action, metadata, ts FROM activity_logs WHERE lead_id = ? ORDER BY ts DESC`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list logs")
	}
	defer rows.Close()

	var logs []model.ActivityLog
	for rows.Next() {
		var entry model.ActivityLog
		var activityID, metaJSON sql.NullString
		if err := rows.Scan(&entry.ID, &entry.LeadID, &activityID, &entry.Action, &metaJSON, &entry.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log")
		}
		if activityID.Valid {
			entry.ActivityID = activityID.String
		}
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &entry.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal log metadata")
			}
		}
		logs = append(logs, entry)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list logs iterate")
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type sqlScannable interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row sqlScannable) (*model.Lead, error) {
	var l model.Lead
	var freezeJSON, conversionJSON sql.NullString

	err := row.Scan(
		&l.ID, &l.Name, &l.ContactNumber, &l.Email, &l.StageID, &l.Status,
		&l.ReasonForJunk, &l.ReasonForLost, &l.AssignSalesPersonID, &l.AssignDesignerID,
		&l.IsFrozen, &freezeJSON, &conversionJSON, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if freezeJSON.Valid && freezeJSON.String != "" {
		l.Freeze = &model.FreezeDetails{}
		if err := json.Unmarshal([]byte(freezeJSON.String), l.Freeze); err != nil {
			return nil, eris.Wrap(err, "unmarshal freeze details")
		}
	}
	if conversionJSON.Valid && conversionJSON.String != "" {
		l.Conversion = &model.ConversionDetails{}
		if err := json.Unmarshal([]byte(conversionJSON.String), l.Conversion); err != nil {
			return nil, eris.Wrap(err, "unmarshal conversion details")
		}
	}
	return &l, nil
}
