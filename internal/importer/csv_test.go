package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/store"
)

func TestParse(t *testing.T) {
	csv := `name,contact_number,email,stage_key,assign_sales_person_emp_id
Asha Verma,9876543210,asha@example.com,new,EMP-7
Ravi Kumar,,ravi@example.com,contacted,
`
	rows, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Asha Verma", rows[0].Name)
	assert.Equal(t, "9876543210", rows[0].ContactNumber)
	assert.Equal(t, "asha@example.com", rows[0].Email)
	assert.Equal(t, "new", rows[0].StageKey)
	assert.Equal(t, "EMP-7", rows[0].AssignSalesPersonID)

	assert.Equal(t, "Ravi Kumar", rows[1].Name)
	assert.Empty(t, rows[1].ContactNumber)
	assert.Equal(t, "contacted", rows[1].StageKey)
}

func TestParse_ColumnOrderIsFree(t *testing.T) {
	csv := `stage_key,name
new,Asha Verma
`
	rows, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha Verma", rows[0].Name)
	assert.Equal(t, "new", rows[0].StageKey)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	csv := `name,email
Asha Verma,asha@example.com
`
	_, err := Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage_key")
}

func TestParse_SkipsIncompleteRows(t *testing.T) {
	csv := `name,stage_key
Asha Verma,new
,new
Ravi Kumar,
Meera Nair,contacted
`
	rows, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Asha Verma", rows[0].Name)
	assert.Equal(t, "Meera Nair", rows[1].Name)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "import_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestImport_CreatesLeads(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateStage(ctx, model.Stage{Key: "new", Name: "New", Position: 1})
	require.NoError(t, err)
	contacted, err := st.CreateStage(ctx, model.Stage{Key: "contacted", Name: "Contacted", Position: 2})
	require.NoError(t, err)

	rows := []Row{
		{Name: "Asha Verma", StageKey: "new", Email: "asha@example.com"},
		{Name: "Ravi Kumar", StageKey: "contacted", ContactNumber: "9876543210"},
	}
	created, err := Import(ctx, st, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	leads, err := st.ListLeads(ctx, store.LeadFilter{StageID: contacted.ID})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Ravi Kumar", leads[0].Name)
	assert.Equal(t, model.LeadStatusActive, leads[0].Status)
}

func TestImport_UnknownStageKey(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateStage(ctx, model.Stage{Key: "new", Name: "New", Position: 1})
	require.NoError(t, err)

	_, err = Import(ctx, st, []Row{{Name: "Asha Verma", StageKey: "nope"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImport_EmptyInput(t *testing.T) {
	created, err := Import(context.Background(), newTestStore(t), nil)
	require.NoError(t, err)
	assert.Zero(t, created)
}
