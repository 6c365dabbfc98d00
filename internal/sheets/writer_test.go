package sheets

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

type updateCall struct {
	rng    string
	values [][]any
}

type fakeAPI struct {
	existing     *sheets.Spreadsheet
	updateErr    error
	formatErr    error
	created      *sheets.Spreadsheet
	cleared      []string
	updates      []updateCall
	updateTries  int
	batchUpdates []*sheets.BatchUpdateSpreadsheetRequest
}

func (f *fakeAPI) Get(_ context.Context, id string) (*sheets.Spreadsheet, error) {
	if f.existing == nil || f.existing.SpreadsheetId != id {
		return nil, errors.New("spreadsheet not found")
	}
	return f.existing, nil
}

func (f *fakeAPI) Create(_ context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	f.created = s
	s.SpreadsheetId = "new-sheet"
	for i, sh := range s.Sheets {
		sh.Properties.SheetId = int64(100 + i)
	}
	return s, nil
}

func (f *fakeAPI) BatchUpdate(_ context.Context, _ string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	f.batchUpdates = append(f.batchUpdates, req)
	if len(req.Requests) > 0 && req.Requests[0].AddSheet != nil {
		return &sheets.BatchUpdateSpreadsheetResponse{
			Replies: []*sheets.Response{{
				AddSheet: &sheets.AddSheetResponse{Properties: &sheets.SheetProperties{SheetId: 42}},
			}},
		}, nil
	}
	return &sheets.BatchUpdateSpreadsheetResponse{}, f.formatErr
}

func (f *fakeAPI) Clear(_ context.Context, _ string, rng string) error {
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeAPI) Update(_ context.Context, _ string, rng string, values [][]any) error {
	f.updateTries++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updateCall{rng: rng, values: values})
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "/unused.json"
	cfg.RetryAttempts = 1
	cfg.RetryDelay = 0
	return cfg
}

func TestWriteBudget_ExistingTab(t *testing.T) {
	api := &fakeAPI{existing: &sheets.Spreadsheet{
		SpreadsheetId: "sheet-1",
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{SheetId: 7, Title: "Budget 202401"}},
		},
	}}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-1"

	id, err := newWriter(api, cfg, slog.Default()).WriteBudget(context.Background(), budgetFixture())
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	assert.Equal(t, []string{"'Budget 202401'!A:Z"}, api.cleared)
	require.Len(t, api.updates, 1)
	assert.Equal(t, "'Budget 202401'!A1", api.updates[0].rng)
	assert.Len(t, api.updates[0].values, 7)

	require.Len(t, api.batchUpdates, 1)
	frozen := api.batchUpdates[0].Requests[len(api.batchUpdates[0].Requests)-1]
	require.NotNil(t, frozen.UpdateSheetProperties)
	assert.Equal(t, int64(7), frozen.UpdateSheetProperties.Properties.SheetId)
}

func TestWriteBudget_AddsMissingTab(t *testing.T) {
	api := &fakeAPI{existing: &sheets.Spreadsheet{SpreadsheetId: "sheet-1"}}
	cfg := testConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.EnableFormatting = false

	_, err := newWriter(api, cfg, nil).WriteBudget(context.Background(), budgetFixture())
	require.NoError(t, err)

	require.Len(t, api.batchUpdates, 1)
	add := api.batchUpdates[0].Requests[0].AddSheet
	require.NotNil(t, add)
	assert.Equal(t, "Budget 202401", add.Properties.Title)
	assert.Len(t, api.updates, 1)
}

func TestWriteBudget_CreatesSpreadsheet(t *testing.T) {
	api := &fakeAPI{}
	cfg := testConfig()

	id, err := newWriter(api, cfg, nil).WriteBudget(context.Background(), budgetFixture())
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)

	require.NotNil(t, api.created)
	assert.Equal(t, cfg.SpreadsheetName, api.created.Properties.Title)
	assert.Equal(t, "Budget 202401", api.created.Sheets[0].Properties.Title)
}

func TestWriteBudget_Batches(t *testing.T) {
	api := &fakeAPI{}
	cfg := testConfig()
	cfg.BatchSize = 3
	cfg.EnableFormatting = false

	_, err := newWriter(api, cfg, nil).WriteBudget(context.Background(), budgetFixture())
	require.NoError(t, err)

	require.Len(t, api.updates, 3)
	assert.Equal(t, "'Budget 202401'!A1", api.updates[0].rng)
	assert.Equal(t, "'Budget 202401'!A4", api.updates[1].rng)
	assert.Equal(t, "'Budget 202401'!A7", api.updates[2].rng)
	assert.Len(t, api.updates[2].values, 1)
}

func TestWriteBudget_Errors(t *testing.T) {
	t.Run("write failure", func(t *testing.T) {
		api := &fakeAPI{updateErr: errors.New("quota")}
		_, err := newWriter(api, testConfig(), nil).WriteBudget(context.Background(), budgetFixture())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write data")
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryAttempts = 3
		api := &fakeAPI{updateErr: &googleapi.Error{Code: 403, Message: "forbidden"}}
		_, err := newWriter(api, cfg, nil).WriteBudget(context.Background(), budgetFixture())
		require.Error(t, err)
		assert.Equal(t, 1, api.updateTries)
		assert.True(t, common.IsPermanent(err))
	})

	t.Run("server errors are retried", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryAttempts = 3
		api := &fakeAPI{updateErr: &googleapi.Error{Code: 503, Message: "unavailable"}}
		_, err := newWriter(api, cfg, nil).WriteBudget(context.Background(), budgetFixture())
		require.Error(t, err)
		assert.Equal(t, 3, api.updateTries)
		assert.ErrorIs(t, err, common.ErrRetriesExhausted)
	})

	t.Run("formatting failure is not fatal", func(t *testing.T) {
		api := &fakeAPI{formatErr: &googleapi.Error{Code: 400, Message: "bad request"}}
		id, err := newWriter(api, testConfig(), nil).WriteBudget(context.Background(), budgetFixture())
		require.NoError(t, err)
		assert.Equal(t, "new-sheet", id)
	})

	t.Run("inaccessible spreadsheet", func(t *testing.T) {
		cfg := testConfig()
		cfg.SpreadsheetID = "missing"
		_, err := newWriter(&fakeAPI{}, cfg, nil).WriteBudget(context.Background(), budgetFixture())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to access spreadsheet")
	})
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
