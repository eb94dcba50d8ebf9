package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
)

// AlignmentService maintains the directed objective alignment graph for a
// tenant and guarantees it stays acyclic.
type AlignmentService interface {
	// Align links child under parent. Returns true when a new edge was
	// created, false when the exact edge already existed.
	Align(ctx context.Context, tenantID, parentID, childID uuid.UUID) (bool, error)
	Unalign(ctx context.Context, tenantID, parentID, childID uuid.UUID) error
	ListAlignedTo(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error)
	ListAlignedFrom(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error)
}

type alignmentService struct {
	objectives repos.ObjectiveRepo
	edges      repos.AlignmentRepo
	log        *logger.Logger
}

func NewAlignmentService(log *logger.Logger, objectives repos.ObjectiveRepo, edges repos.AlignmentRepo) AlignmentService {
	serviceLog := log.With("service", "AlignmentService")
	return &alignmentService{objectives: objectives, edges: edges, log: serviceLog}
}

func (s *alignmentService) Align(ctx context.Context, tenantID, parentID, childID uuid.UUID) (bool, error) {
	if parentID == childID {
		return false, apierr.Validation("self_link")
	}

	parentExists, err := s.objectives.Exists(ctx, nil, tenantID, parentID)
	if err != nil {
		return false, err
	}
	childExists, err := s.objectives.Exists(ctx, nil, tenantID, childID)
	if err != nil {
		return false, err
	}
	if !parentExists || !childExists {
		return false, apierr.NotFound("objective_not_found")
	}

	edges, err := s.edges.EdgesForTenant(ctx, nil, tenantID)
	if err != nil {
		return false, err
	}
	for _, edge := range edges {
		if edge.ParentObjectiveID == parentID && edge.ChildObjectiveID == childID {
			return false, nil
		}
	}
	// parent->...->child already reachable means the reverse edge would
	// close a cycle. Check from the candidate child downward.
	if Reachable(edges, childID, parentID) {
		return false, apierr.Validation("cycle_detected")
	}

	if err := s.edges.AddEdge(ctx, nil, &types.AlignmentEdge{
		TenantID:          tenantID,
		ParentObjectiveID: parentID,
		ChildObjectiveID:  childID,
	}); err != nil {
		return false, err
	}
	s.log.Info("alignment edge created", "tenant_id", tenantID.String())
	return true, nil
}

func (s *alignmentService) Unalign(ctx context.Context, tenantID, parentID, childID uuid.UUID) error {
	return s.edges.RemoveEdge(ctx, nil, tenantID, parentID, childID)
}

func (s *alignmentService) ListAlignedTo(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	return s.edges.ListAlignedTo(ctx, nil, tenantID, objectiveID)
}

func (s *alignmentService) ListAlignedFrom(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	return s.edges.ListAlignedFrom(ctx, nil, tenantID, objectiveID)
}

// Reachable reports whether `to` can be reached from `from` by following
// parent-to-child edges. Plain BFS over the tenant's edge set.
func Reachable(edges []*types.AlignmentEdge, from, to uuid.UUID) bool {
	if from == to {
		return true
	}
	children := make(map[uuid.UUID][]uuid.UUID, len(edges))
	for _, edge := range edges {
		children[edge.ParentObjectiveID] = append(children[edge.ParentObjectiveID], edge.ChildObjectiveID)
	}

	visited := map[uuid.UUID]bool{from: true}
	queue := []uuid.UUID{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range children[node] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
