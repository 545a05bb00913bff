package transition

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/notify"
	"github.com/medhirweb/salespipe/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error) {
	args := m.Called(ctx, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Stage), args.Error(1)
}

func (m *mockStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Stage), args.Error(1)
}

func (m *mockStore) GetStage(ctx context.Context, stageID string) (*model.Stage, error) {
	args := m.Called(ctx, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Stage), args.Error(1)
}

func (m *mockStore) GetStageByKey(ctx context.Context, key string) (*model.Stage, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Stage), args.Error(1)
}

func (m *mockStore) DeleteStage(ctx context.Context, stageID string) error {
	args := m.Called(ctx, stageID)
	return args.Error(0)
}

func (m *mockStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) UpdateLeadFields(ctx context.Context, leadID string, upd model.LeadUpdate) error {
	args := m.Called(ctx, leadID, upd)
	return args.Error(0)
}

func (m *mockStore) MoveLeadToStage(ctx context.Context, leadID, stageID string, entry model.ActivityLog) error {
	args := m.Called(ctx, leadID, stageID, entry)
	return args.Error(0)
}

func (m *mockStore) SetLeadOutcome(ctx context.Context, leadID, stageID string, status model.LeadStatus, reason string, entry model.ActivityLog) error {
	args := m.Called(ctx, leadID, stageID, status, reason, entry)
	return args.Error(0)
}

func (m *mockStore) FreezeLead(ctx context.Context, leadID, stageID string, details model.FreezeDetails, entry model.ActivityLog) error {
	args := m.Called(ctx, leadID, stageID, details, entry)
	return args.Error(0)
}

func (m *mockStore) ConvertLead(ctx context.Context, leadID, stageID string, details model.ConversionDetails, entry model.ActivityLog) error {
	args := m.Called(ctx, leadID, stageID, details, entry)
	return args.Error(0)
}

func (m *mockStore) CreateActivity(ctx context.Context, activity model.Activity) (*model.Activity, error) {
	args := m.Called(ctx, activity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *mockStore) GetActivity(ctx context.Context, activityID string) (*model.Activity, error) {
	args := m.Called(ctx, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *mockStore) UpdateActivity(ctx context.Context, activity model.Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *mockStore) CompleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	args := m.Called(ctx, activityID, entry)
	return args.Error(0)
}

func (m *mockStore) DeleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error {
	args := m.Called(ctx, activityID, entry)
	return args.Error(0)
}

func (m *mockStore) ListActivities(ctx context.Context, leadID string) ([]model.Activity, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

func (m *mockStore) ListOverdueActivities(ctx context.Context, asOf time.Time) ([]model.Activity, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

func (m *mockStore) AppendLog(ctx context.Context, entry model.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStore) ListLogs(ctx context.Context, leadID string) ([]model.ActivityLog, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Notifier Spy ---

// spyNotifier records every event so tests can assert the one-notification
// invariant.
type spyNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *spyNotifier) Notify(_ context.Context, event notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *spyNotifier) Events() []notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Event, len(s.events))
	copy(out, s.events)
	return out
}
