// Package importer bulk-loads leads from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/db"
	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/store"
)

// Row is one parsed CSV lead.
type Row struct {
	Name                string
	ContactNumber       string
	Email               string
	StageKey            string
	AssignSalesPersonID string
	AssignDesignerID    string
}

// requiredHeaders are the minimum columns an import file must supply.
var requiredHeaders = []string{"name", "stage_key"}

// Parse reads CSV rows. The header row names the columns; order is free.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "importer: read header")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := idx[h]; !ok {
			return nil, eris.Errorf("importer: missing required column %q", h)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read record")
		}
		row := Row{
			Name:                field(rec, "name"),
			ContactNumber:       field(rec, "contact_number"),
			Email:               field(rec, "email"),
			StageKey:            field(rec, "stage_key"),
			AssignSalesPersonID: field(rec, "assign_sales_person_emp_id"),
			AssignDesignerID:    field(rec, "assign_designer_emp_id"),
		}
		if row.Name == "" || row.StageKey == "" {
			zap.L().Warn("importer: skipping row with missing name or stage_key")
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Import resolves each row's stage key and creates the leads. When the store
// is Postgres-backed the rows go in via a single COPY; otherwise they are
// inserted one by one.
func Import(ctx context.Context, st store.Store, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stages, err := st.ListStages(ctx)
	if err != nil {
		return 0, err
	}
	byKey := make(map[string]model.Stage, len(stages))
	for _, s := range stages {
		byKey[s.Key] = s
	}

	var ready []resolvedRow
	for _, row := range rows {
		stage, ok := byKey[row.StageKey]
		if !ok {
			return 0, eris.Wrapf(store.ErrNotFound, "importer: stage key %q", row.StageKey)
		}
		ready = append(ready, resolvedRow{row: row, stageID: stage.ID})
	}

	if ps, ok := st.(*store.PostgresStore); ok {
		return copyLeads(ctx, ps, ready)
	}

	created := 0
	for _, r := range ready {
		if _, err := st.CreateLead(ctx, model.Lead{
			Name:                r.row.Name,
			ContactNumber:       r.row.ContactNumber,
			Email:               r.row.Email,
			StageID:             r.stageID,
			AssignSalesPersonID: r.row.AssignSalesPersonID,
			AssignDesignerID:    r.row.AssignDesignerID,
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

type resolvedRow struct {
	row     Row
	stageID string
}

func copyLeads(ctx context.Context, ps *store.PostgresStore, ready []resolvedRow) (int, error) {
	now := time.Now().UTC()
	columns := []string{
		"id", "name", "contact_number", "email", "stage_id", "status",
		"assign_sales_person_id", "assign_designer_id", "created_at", "updated_at",
	}
	copyRows := make([][]any, 0, len(ready))
	for _, r := range ready {
		copyRows = append(copyRows, []any{
			uuid.New().String(), r.row.Name, r.row.ContactNumber, r.row.Email,
			r.stageID, string(model.LeadStatusActive),
			r.row.AssignSalesPersonID, r.row.AssignDesignerID, now, now,
		})
	}

	n, err := db.CopyFrom(ctx, ps.Pool(), "leads", columns, copyRows)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
