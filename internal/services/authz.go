package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

const (
	AuthzModeTenantOpen  = "tenant_open"
	AuthzModeMembersOnly = "members_only"
)

// Access is the resolved capability set of one user on one objective.
type Access struct {
	Role             types.Role
	IsMember         bool
	CanView          bool
	CanEdit          bool
	CanDelete        bool
	CanManageMembers bool
}

// AuthzService resolves per-objective capabilities. The mode is read once at
// construction so a process never mixes policies mid-flight.
type AuthzService interface {
	Mode() string
	// Resolve computes the capability set without side effects.
	Resolve(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error)
	// ResolveForWrite is Resolve plus the one-time owner bootstrap: in
	// tenant_open mode, the first writer on an objective with zero
	// memberships becomes its owner.
	ResolveForWrite(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error)
	RequireView(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) error
	RequireEdit(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error)
}

type authzService struct {
	mode        string
	memberships repos.MembershipRepo
	log         *logger.Logger
}

func NewAuthzService(log *logger.Logger, memberships repos.MembershipRepo) AuthzService {
	serviceLog := log.With("service", "AuthzService")
	mode := utils.GetEnv("AUTHZ_MODE", AuthzModeTenantOpen, serviceLog)
	if mode != AuthzModeTenantOpen && mode != AuthzModeMembersOnly {
		serviceLog.Warn("unknown AUTHZ_MODE, using tenant_open", "mode", mode)
		mode = AuthzModeTenantOpen
	}
	serviceLog.Info("authorization mode resolved", "mode", mode)
	return &authzService{mode: mode, memberships: memberships, log: serviceLog}
}

func (s *authzService) Mode() string {
	return s.mode
}

func (s *authzService) Resolve(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error) {
	membership, err := s.memberships.Get(ctx, nil, tenantID, objectiveID, userObjectID)
	if err != nil {
		return Access{}, err
	}
	if membership != nil {
		return accessForRole(membership.Role, true), nil
	}
	if s.mode == AuthzModeTenantOpen {
		// Any authenticated tenant user can at least read.
		return accessForRole(types.RoleViewer, false), nil
	}
	return Access{}, nil
}

func (s *authzService) ResolveForWrite(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error) {
	access, err := s.Resolve(ctx, tenantID, objectiveID, userObjectID)
	if err != nil {
		return Access{}, err
	}
	if access.IsMember || s.mode != AuthzModeTenantOpen {
		return access, nil
	}

	count, err := s.memberships.CountMembers(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return Access{}, err
	}
	if count > 0 {
		return access, nil
	}
	// Objective has no members at all: the first writer claims ownership.
	if _, err := s.memberships.Add(ctx, nil, &types.Membership{
		TenantID:     tenantID,
		ObjectiveID:  objectiveID,
		UserObjectID: userObjectID,
		Role:         types.RoleOwner,
	}); err != nil {
		return Access{}, err
	}
	s.log.Info("owner bootstrap applied",
		"tenant_id", tenantID.String(),
		"user_object_id", userObjectID.String())
	return accessForRole(types.RoleOwner, true), nil
}

func (s *authzService) RequireView(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) error {
	access, err := s.Resolve(ctx, tenantID, objectiveID, userObjectID)
	if err != nil {
		return err
	}
	if !access.CanView {
		return apierr.Forbidden("forbidden")
	}
	return nil
}

func (s *authzService) RequireEdit(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) (Access, error) {
	access, err := s.ResolveForWrite(ctx, tenantID, objectiveID, userObjectID)
	if err != nil {
		return Access{}, err
	}
	if !access.CanEdit {
		return Access{}, apierr.Forbidden("forbidden")
	}
	return access, nil
}

func accessForRole(role types.Role, isMember bool) Access {
	access := Access{Role: role, IsMember: isMember}
	switch role {
	case types.RoleOwner:
		access.CanView = true
		access.CanEdit = true
		access.CanDelete = true
		access.CanManageMembers = true
	case types.RoleEditor:
		access.CanView = true
		access.CanEdit = true
	case types.RoleViewer:
		access.CanView = true
	}
	return access
}

// CanRemoveOwner guards the last-owner invariant: the final owner of an
// objective can never be demoted or removed.
func CanRemoveOwner(ownerCount int64, targetRole types.Role) bool {
	if targetRole != types.RoleOwner {
		return true
	}
	return ownerCount > 1
}
