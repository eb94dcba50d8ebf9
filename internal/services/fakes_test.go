package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	return log
}

// In-memory repo fakes. The tx argument is ignored; every fake keys its rows
// the same way the persistent layer does.

type fakeObjectiveRepo struct {
	rows map[uuid.UUID]*types.Objective
}

func newFakeObjectiveRepo() *fakeObjectiveRepo {
	return &fakeObjectiveRepo{rows: make(map[uuid.UUID]*types.Objective)}
}

func (f *fakeObjectiveRepo) Create(ctx context.Context, tx *gorm.DB, objective *types.Objective) (*types.Objective, error) {
	if objective.ID == uuid.Nil {
		objective.ID = uuid.New()
	}
	objective.CreatedAt = time.Now()
	f.rows[objective.ID] = objective
	return objective, nil
}

func (f *fakeObjectiveRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.Objective, error) {
	row, ok := f.rows[objectiveID]
	if !ok || row.TenantID != tenantID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeObjectiveRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Objective, error) {
	var out []*types.Objective
	for _, row := range f.rows {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeObjectiveRepo) Exists(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (bool, error) {
	row, ok := f.rows[objectiveID]
	return ok && row.TenantID == tenantID, nil
}

func (f *fakeObjectiveRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID, status string) error {
	if row, ok := f.rows[objectiveID]; ok && row.TenantID == tenantID {
		row.Status = status
	}
	return nil
}

func (f *fakeObjectiveRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error {
	delete(f.rows, objectiveID)
	return nil
}

type fakeKeyResultRepo struct {
	rows map[uuid.UUID]*types.KeyResult
	seq  int
}

func newFakeKeyResultRepo() *fakeKeyResultRepo {
	return &fakeKeyResultRepo{rows: make(map[uuid.UUID]*types.KeyResult)}
}

func (f *fakeKeyResultRepo) Create(ctx context.Context, tx *gorm.DB, kr *types.KeyResult) (*types.KeyResult, error) {
	if kr.ID == uuid.Nil {
		kr.ID = uuid.New()
	}
	f.seq++
	kr.CreatedAt = time.Unix(int64(f.seq), 0)
	f.rows[kr.ID] = kr
	return kr, nil
}

func (f *fakeKeyResultRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KeyResult, error) {
	row, ok := f.rows[krID]
	if !ok || row.TenantID != tenantID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeKeyResultRepo) ListByObjective(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.KeyResult, error) {
	var out []*types.KeyResult
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.ObjectiveID == objectiveID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeKeyResultRepo) UpdateCurrentValue(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID, value float64) error {
	if row, ok := f.rows[krID]; ok && row.TenantID == tenantID {
		v := value
		row.CurrentValue = &v
	}
	return nil
}

func (f *fakeKeyResultRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) error {
	delete(f.rows, krID)
	return nil
}

type fakeCheckinRepo struct {
	rows []*types.Checkin
}

func newFakeCheckinRepo() *fakeCheckinRepo {
	return &fakeCheckinRepo{}
}

func (f *fakeCheckinRepo) Create(ctx context.Context, tx *gorm.DB, checkin *types.Checkin) (*types.Checkin, error) {
	if checkin.ID == uuid.Nil {
		checkin.ID = uuid.New()
	}
	checkin.CreatedAt = time.Unix(int64(len(f.rows)+1), 0)
	f.rows = append(f.rows, checkin)
	return checkin, nil
}

func (f *fakeCheckinRepo) ListByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) ([]*types.Checkin, error) {
	var out []*types.Checkin
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.KeyResultID == krID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCheckinRepo) CountByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.KeyResultID == krID {
			n++
		}
	}
	return n, nil
}

type fakeInsightRepo struct {
	krInsights        map[uuid.UUID]*types.KrInsight
	objectiveInsights map[uuid.UUID]*types.ObjectiveInsight
}

func newFakeInsightRepo() *fakeInsightRepo {
	return &fakeInsightRepo{
		krInsights:        make(map[uuid.UUID]*types.KrInsight),
		objectiveInsights: make(map[uuid.UUID]*types.ObjectiveInsight),
	}
}

func (f *fakeInsightRepo) UpsertKrInsight(ctx context.Context, tx *gorm.DB, insight *types.KrInsight) (*types.KrInsight, error) {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	f.krInsights[insight.KeyResultID] = insight
	return insight, nil
}

func (f *fakeInsightRepo) UpsertObjectiveInsight(ctx context.Context, tx *gorm.DB, insight *types.ObjectiveInsight) (*types.ObjectiveInsight, error) {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	f.objectiveInsights[insight.ObjectiveID] = insight
	return insight, nil
}

func (f *fakeInsightRepo) GetKrInsight(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KrInsight, error) {
	row, ok := f.krInsights[krID]
	if !ok || row.TenantID != tenantID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeInsightRepo) GetObjectiveInsight(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.ObjectiveInsight, error) {
	row, ok := f.objectiveInsights[objectiveID]
	if !ok || row.TenantID != tenantID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeInsightRepo) ListKrInsightsByKeyResults(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, krIDs []uuid.UUID) ([]*types.KrInsight, error) {
	var out []*types.KrInsight
	for _, id := range krIDs {
		if row, ok := f.krInsights[id]; ok && row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeAlignmentRepo struct {
	edges []*types.AlignmentEdge
}

func newFakeAlignmentRepo() *fakeAlignmentRepo {
	return &fakeAlignmentRepo{}
}

func (f *fakeAlignmentRepo) EdgesForTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.AlignmentEdge, error) {
	var out []*types.AlignmentEdge
	for _, edge := range f.edges {
		if edge.TenantID == tenantID {
			out = append(out, edge)
		}
	}
	return out, nil
}

func (f *fakeAlignmentRepo) AddEdge(ctx context.Context, tx *gorm.DB, edge *types.AlignmentEdge) error {
	for _, existing := range f.edges {
		if existing.TenantID == edge.TenantID &&
			existing.ParentObjectiveID == edge.ParentObjectiveID &&
			existing.ChildObjectiveID == edge.ChildObjectiveID {
			return nil
		}
	}
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	f.edges = append(f.edges, edge)
	return nil
}

func (f *fakeAlignmentRepo) RemoveEdge(ctx context.Context, tx *gorm.DB, tenantID, parentID, childID uuid.UUID) error {
	kept := f.edges[:0]
	for _, edge := range f.edges {
		if edge.TenantID == tenantID && edge.ParentObjectiveID == parentID && edge.ChildObjectiveID == childID {
			continue
		}
		kept = append(kept, edge)
	}
	f.edges = kept
	return nil
}

func (f *fakeAlignmentRepo) ListAlignedTo(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	return nil, nil
}

func (f *fakeAlignmentRepo) ListAlignedFrom(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	return nil, nil
}

type membershipKey struct {
	objectiveID  uuid.UUID
	userObjectID uuid.UUID
}

type fakeMembershipRepo struct {
	rows map[membershipKey]*types.Membership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{rows: make(map[membershipKey]*types.Membership)}
}

func (f *fakeMembershipRepo) Get(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) (*types.Membership, error) {
	row, ok := f.rows[membershipKey{objectiveID, userObjectID}]
	if !ok || row.TenantID != tenantID {
		return nil, nil
	}
	return row, nil
}

func (f *fakeMembershipRepo) List(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Membership, error) {
	var out []*types.Membership
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.ObjectiveID == objectiveID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) Add(ctx context.Context, tx *gorm.DB, membership *types.Membership) (bool, error) {
	key := membershipKey{membership.ObjectiveID, membership.UserObjectID}
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	f.rows[key] = membership
	return true, nil
}

func (f *fakeMembershipRepo) UpdateRole(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID, role types.Role) error {
	if row, ok := f.rows[membershipKey{objectiveID, userObjectID}]; ok && row.TenantID == tenantID {
		row.Role = role
	}
	return nil
}

func (f *fakeMembershipRepo) Remove(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) error {
	delete(f.rows, membershipKey{objectiveID, userObjectID})
	return nil
}

func (f *fakeMembershipRepo) CountOwners(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.ObjectiveID == objectiveID && row.Role == types.RoleOwner {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembershipRepo) CountMembers(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.ObjectiveID == objectiveID {
			n++
		}
	}
	return n, nil
}

type fakeUserResolver struct {
	users map[string]*ResolvedUser
	err   error
}

func (f *fakeUserResolver) ResolveByEmail(ctx context.Context, email string) (*ResolvedUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

type fakeInsightProvider struct {
	enabled bool
	result  ProviderResult
}

func (f *fakeInsightProvider) Enabled() bool { return f.enabled }

func (f *fakeInsightProvider) GenerateKrInsight(ctx context.Context, signals KrSignals) ProviderResult {
	return f.result
}

func (f *fakeInsightProvider) GenerateObjectiveInsight(ctx context.Context, signals ObjectiveSignals) ProviderResult {
	return f.result
}

func fptr(v float64) *float64 { return &v }
