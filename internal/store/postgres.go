package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/medhirweb/salespipe/internal/db"
	"github.com/medhirweb/salespipe/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot transition path.
var preparedStatements = map[string]string{
	"get_lead":       `SELECT id, name, contact_number, email, stage_id, status, reason_for_junk, reason_for_lost, assign_sales_person_id, assign_designer_id, is_frozen, freeze, conversion, created_at, updated_at FROM leads WHERE id = $1`,
	"move_lead":      `UPDATE leads SET stage_id = $1, updated_at = $2 WHERE id = $3`,
	"get_stage":      `SELECT id, key, name, color, form_type, position, created_at FROM stages WHERE id = $1`,
	"get_stage_key":  `SELECT id, key, name, color, form_type, position, created_at FROM stages WHERE key = $1`,
	"append_log":     `INSERT INTO activity_logs (id, lead_id, activity_id, action, metadata, ts) VALUES ($1, $2, $3, $4, $5, $6)`,
	"list_stages":    `SELECT id, key, name, color, form_type, position, created_at FROM stages ORDER BY position, key`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access (e.g., the CSV importer's bulk COPY path).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS stages (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	key        TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	form_type  TEXT NOT NULL DEFAULT 'none',
	position   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                   TEXT NOT NULL,
	contact_number         TEXT NOT NULL DEFAULT '',
	email                  TEXT NOT NULL DEFAULT '',
	stage_id               TEXT NOT NULL REFERENCES stages(id),
	status                 TEXT NOT NULL DEFAULT 'Active',
	reason_for_junk        TEXT NOT NULL DEFAULT '',
	reason_for_lost        TEXT NOT NULL DEFAULT '',
	assign_sales_person_id TEXT NOT NULL DEFAULT '',
	assign_designer_id     TEXT NOT NULL DEFAULT '',
	is_frozen              BOOLEAN NOT NULL DEFAULT false,
	freeze                 JSONB,
	conversion             JSONB,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activities (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	due_date   TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	attachment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_logs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id     TEXT NOT NULL,
	activity_id TEXT,
	action      TEXT NOT NULL,
	metadata    JSONB,
	ts          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_stage_id ON leads(stage_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_sales_person ON leads(assign_sales_person_id);
CREATE INDEX IF NOT EXISTS idx_activities_lead_id ON activities(lead_id);
CREATE INDEX IF NOT EXISTS idx_activities_due ON activities(status, due_date);
CREATE INDEX IF NOT EXISTS idx_activity_logs_lead_id ON activity_logs(lead_id, ts DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Stages ---

func (s *PostgresStore) CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error) {
	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}
	stage.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stages (id, key, name, color, form_type, position, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stage.ID, stage.Key, stage.Name, stage.Color, string(stage.FormType), stage.Position, stage.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, eris.Wrapf(ErrDuplicateKey, "postgres: create stage %s", stage.Key)
		}
		return nil, eris.Wrap(err, "postgres: insert stage")
	}
	return &stage, nil
}

func (s *PostgresStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, name, color, form_type, position, created_at FROM stages ORDER BY position, key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stages")
	}
	defer rows.Close()

	var stages []model.Stage
	for rows.Next() {
		var st model.Stage
		if err := rows.Scan(&st.ID, &st.Key, &st.Name, &st.Color, &st.FormType, &st.Position, &st.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage")
		}
		stages = append(stages, st)
	}
	return stages, eris.Wrap(rows.Err(), "postgres: list stages iterate")
}

func (s *PostgresStore) GetStage(ctx context.Context, stageID string) (*model.Stage, error) {
	return s.scanStage(ctx,
		`SELECT id, key, name, color, form_type, position, created_at FROM stages WHERE id = $1`,
		stageID, "stage "+stageID,
	)
}

func (s *PostgresStore) GetStageByKey(ctx context.Context, key string) (*model.Stage, error) {
	return s.scanStage(ctx,
		`SELECT id, key, name, color, form_type, position, created_at FROM stages WHERE key = $1`,
		key, "stage key "+key,
	)
}

func (s *PostgresStore) scanStage(ctx context.Context, query, arg, desc string) (*model.Stage, error) {
	var st model.Stage
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&st.ID, &st.Key, &st.Name, &st.Color, &st.FormType, &st.Position, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: %s", desc)
		}
		return nil, eris.Wrapf(err, "postgres: get %s", desc)
	}
	return &st, nil
}

func (s *PostgresStore) DeleteStage(ctx context.Context, stageID string) error {
	var attached int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE stage_id = $1`, stageID,
	).Scan(&attached)
	if err != nil {
		return eris.Wrapf(err, "postgres: count leads in stage %s", stageID)
	}
	if attached > 0 {
		return eris.Wrapf(ErrStageInUse, "postgres: delete stage %s", stageID)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM stages WHERE id = $1`, stageID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete stage %s", stageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: stage %s", stageID)
	}
	return nil
}

// --- Leads ---

const leadColumns = `id, name, contact_number, email, stage_id, status, reason_for_junk, reason_for_lost, assign_sales_person_id, assign_designer_id, is_frozen, freeze, conversion, created_at, updated_at`

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusActive
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, name, contact_number, email, stage_id, status, assign_sales_person_id, assign_designer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lead.ID, lead.Name, lead.ContactNumber, lead.Email, lead.StageID, string(lead.Status),
		lead.AssignSalesPersonID, lead.AssignDesignerID, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID,
	)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.StageID != "" {
		query += fmt.Sprintf(` AND stage_id = $%d`, argIdx)
		args = append(args, filter.StageID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.AssignSalesPersonID != "" {
		query += fmt.Sprintf(` AND assign_sales_person_id = $%d`, argIdx)
		args = append(args, filter.AssignSalesPersonID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadFields(ctx context.Context, leadID string, upd model.LeadUpdate) error {
	query := `UPDATE leads SET updated_at = $1`
	args := []any{time.Now().UTC()}
	argIdx := 2

	set := func(col string, val *string) {
		if val == nil {
			return
		}
		query += fmt.Sprintf(`, %s = $%d`, col, argIdx)
		args = append(args, *val)
		argIdx++
	}
	set("name", upd.Name)
	set("contact_number", upd.ContactNumber)
	set("email", upd.Email)
	set("assign_sales_person_id", upd.AssignSalesPersonID)
	set("assign_designer_id", upd.AssignDesignerID)

	query += fmt.Sprintf(` WHERE id = $%d`, argIdx)
	args = append(args, leadID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
	}
	return nil
}

// --- Transitions ---

// transition runs the lead mutation and the audit-log append in one
// transaction. The mutation must affect exactly one row; otherwise the
// transaction is rolled back and the lead is left unchanged.
func (s *PostgresStore) transition(ctx context.Context, leadID, mutation string, args []any, entry model.ActivityLog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin transition")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, mutation, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition lead %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
	}

	if err := appendLogTx(ctx, tx, entry); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit transition")
}

func appendLogTx(ctx context.Context, tx pgx.Tx, entry model.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal log metadata")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO activity_logs (id, lead_id, activity_id, action, metadata, ts) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.LeadID, nullable(entry.ActivityID), string(entry.Action), metaJSON, entry.Timestamp,
	)
	return eris.Wrap(err, "postgres: append log")
}

func (s *PostgresStore) MoveLeadToStage(ctx context.Context, leadID, stageID string, entry model.ActivityLog) error {
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = $1, updated_at = $2 WHERE id = $3`,
		[]any{stageID, time.Now().UTC(), leadID},
		entry,
	)
}

func (s *PostgresStore) SetLeadOutcome(ctx context.Context, leadID, stageID string, status model.LeadStatus, reason string, entry model.ActivityLog) error {
	reasonCol := "reason_for_lost"
	if status == model.LeadStatusJunk {
		reasonCol = "reason_for_junk"
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = $1, status = $2, `+reasonCol+` = $3, updated_at = $4 WHERE id = $5`,
		[]any{stageID, string(status), reason, time.Now().UTC(), leadID},
		entry,
	)
}

func (s *PostgresStore) FreezeLead(ctx context.Context, leadID, stageID string, details model.FreezeDetails, entry model.ActivityLog) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal freeze details")
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = $1, status = $2, is_frozen = true, freeze = $3, updated_at = $4 WHERE id = $5`,
		[]any{stageID, string(model.LeadStatusFrozen), detailsJSON, time.Now().UTC(), leadID},
		entry,
	)
}

func (s *PostgresStore) ConvertLead(ctx context.Context, leadID, stageID string, details model.ConversionDetails, entry model.ActivityLog) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal conversion details")
	}
	return s.transition(ctx, leadID,
		`UPDATE leads SET stage_id = $1, status = $2, conversion = $3, updated_at = $4 WHERE id = $5`,
		[]any{stageID, string(model.LeadStatusConverted), detailsJSON, time.Now().UTC(), leadID},
		entry,
	)
}

// --- Activities ---

func (s *PostgresStore) CreateActivity(ctx context.Context, activity model.Activity) (*model.Activity, error) {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.Status == "" {
		activity.Status = model.ActivityStatusPending
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO activities (id, lead_id, type, title, due_date, status, attachment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		activity.ID, activity.LeadID, activity.Type, activity.Title, activity.DueDate,
		string(activity.Status), activity.Attachment, activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert activity")
	}
	return &activity, nil
}

func (s *PostgresStore) GetActivity(ctx context.Context, activityID string) (*model.Activity, error) {
	var a model.Activity
	err := s.pool.QueryRow(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at FROM activities WHERE id = $1`,
		activityID,
	).Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.DueDate, &a.Status, &a.Attachment, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: activity %s", activityID)
		}
		return nil, eris.Wrapf(err, "postgres: get activity %s", activityID)
	}
	return &a, nil
}

func (s *PostgresStore) UpdateActivity(ctx context.Context, activity model.Activity) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE activities SET type = $1, title = $2, due_date = $3, attachment = $4, updated_at = $5 WHERE id = $6`,
		activity.Type, activity.Title, activity.DueDate, activity.Attachment, time.Now().UTC(), activity.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update activity %s", activity.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: activity %s", activity.ID)
	}
	return nil
}

func (s *PostgresStore) CompleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin complete activity")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE activities SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.ActivityStatusDone), time.Now().UTC(), activityID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete activity %s", activityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: activity %s", activityID)
	}

	if err := appendLogTx(ctx, tx, entry); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit complete activity")
}

func (s *PostgresStore) DeleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete activity")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, activityID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete activity %s", activityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: activity %s", activityID)
	}

	if err := appendLogTx(ctx, tx, entry); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete activity")
}

func (s *PostgresStore) ListActivities(ctx context.Context, leadID string) ([]model.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at
		 FROM activities WHERE lead_id = $1 ORDER BY due_date`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list activities")
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.DueDate, &a.Status, &a.Attachment, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		activities = append(activities, a)
	}
	return activities, eris.Wrap(rows.Err(), "postgres: list activities iterate")
}

func (s *PostgresStore) ListOverdueActivities(ctx context.Context, asOf time.Time) ([]model.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, type, title, due_date, status, attachment, created_at, updated_at
		 FROM activities WHERE status = $1 AND due_date < $2 ORDER BY due_date`,
		string(model.ActivityStatusPending), asOf,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list overdue activities")
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.DueDate, &a.Status, &a.Attachment, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan overdue activity")
		}
		activities = append(activities, a)
	}
	return activities, eris.Wrap(rows.Err(), "postgres: list overdue iterate")
}

// --- Audit log ---

func (s *PostgresStore) AppendLog(ctx context.Context, entry model.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal log metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO activity_logs (id, lead_id, activity_id, action, metadata, ts) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.LeadID, nullable(entry.ActivityID), string(entry.Action), metaJSON, entry.Timestamp,
	)
	return eris.Wrap(err, "postgres: append log")
}

func (s *PostgresStore) ListLogs(ctx context.Context, leadID string) ([]model.ActivityLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, activity_id, action, metadata, ts FROM activity_logs WHERE lead_id = $1 ORDER BY ts DESC`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list logs")
	}
	defer rows.Close()

	var logs []model.ActivityLog
	for rows.Next() {
		var entry model.ActivityLog
		var activityID *string
		var metaJSON []byte
		if err := rows.Scan(&entry.ID, &entry.LeadID, &activityID, &entry.Action, &metaJSON, &entry.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log")
		}
		if activityID != nil {
			entry.ActivityID = *activityID
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal log metadata")
			}
		}
		logs = append(logs, entry)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list logs iterate")
}

// --- helpers ---

type pgScannable interface {
	Scan(dest ...any) error
}

func scanLead(row pgScannable) (*model.Lead, error) {
	var l model.Lead
	var freezeJSON, conversionJSON []byte

	err := row.Scan(
		&l.ID, &l.Name, &l.ContactNumber, &l.Email, &l.StageID, &l.Status,
		&l.ReasonForJunk, &l.ReasonForLost, &l.AssignSalesPersonID, &l.AssignDesignerID,
		&l.IsFrozen, &freezeJSON, &conversionJSON, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(freezeJSON) > 0 {
		l.Freeze = &model.FreezeDetails{}
		if err := json.Unmarshal(freezeJSON, l.Freeze); err != nil {
			return nil, eris.Wrap(err, "unmarshal freeze details")
		}
	}
	if len(conversionJSON) > 0 {
		l.Conversion = &model.ConversionDetails{}
		if err := json.Unmarshal(conversionJSON, l.Conversion); err != nil {
			return nil, eris.Wrap(err, "unmarshal conversion details")
		}
	}
	return &l, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
