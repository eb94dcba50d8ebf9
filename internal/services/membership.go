package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
)

// MemberView pairs a stored membership with what the directory knows about
// the user, when available.
type MemberView struct {
	Membership  *types.Membership `json:"membership"`
	Email       string            `json:"email,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
}

type MembershipService interface {
	List(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Membership, error)
	// AddByEmail resolves the address in the directory and attaches the
	// user to the objective with the given role.
	AddByEmail(ctx context.Context, tenantID, objectiveID uuid.UUID, email string, role types.Role) (*MemberView, error)
	UpdateRole(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID, role types.Role) error
	Remove(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) error
}

type membershipService struct {
	objectives  repos.ObjectiveRepo
	memberships repos.MembershipRepo
	resolver    UserResolver
	log         *logger.Logger
}

func NewMembershipService(
	log *logger.Logger,
	objectives repos.ObjectiveRepo,
	memberships repos.MembershipRepo,
	resolver UserResolver,
) MembershipService {
	serviceLog := log.With("service", "MembershipService")
	return &membershipService{
		objectives:  objectives,
		memberships: memberships,
		resolver:    resolver,
		log:         serviceLog,
	}
}

func (s *membershipService) List(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]*types.Membership, error) {
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("objective_not_found")
	}
	return s.memberships.List(ctx, nil, tenantID, objectiveID)
}

func (s *membershipService) AddByEmail(ctx context.Context, tenantID, objectiveID uuid.UUID, email string, role types.Role) (*MemberView, error) {
	if !types.ValidRole(role) {
		return nil, apierr.Validation("invalid_role")
	}
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("objective_not_found")
	}

	user, err := s.resolver.ResolveByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return nil, apierr.NotFound("user_not_found")
		case errors.Is(err, ErrUserAmbiguous):
			return nil, apierr.Conflict("user_ambiguous")
		default:
			return nil, apierr.New(http.StatusBadGateway, "directory_unavailable", err)
		}
	}

	member := &types.Membership{
		TenantID:     tenantID,
		ObjectiveID:  objectiveID,
		UserObjectID: user.ObjectID,
		Role:         role,
	}
	if user.Email != "" {
		member.Email = &user.Email
	}
	if user.DisplayName != "" {
		member.DisplayName = &user.DisplayName
	}
	added, err := s.memberships.Add(ctx, nil, member)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, apierr.Conflict("member_exists")
	}

	membership, err := s.memberships.Get(ctx, nil, tenantID, objectiveID, user.ObjectID)
	if err != nil {
		return nil, err
	}
	s.log.Info("member added",
		"tenant_id", tenantID.String(),
		"email", MaskEmail(user.Email),
		"role", string(role))
	return &MemberView{Membership: membership, Email: user.Email, DisplayName: user.DisplayName}, nil
}

func (s *membershipService) UpdateRole(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID, role types.Role) error {
	if !types.ValidRole(role) {
		return apierr.Validation("invalid_role")
	}
	membership, err := s.memberships.Get(ctx, nil, tenantID, objectiveID, userObjectID)
	if err != nil {
		return err
	}
	if membership == nil {
		return apierr.NotFound("member_not_found")
	}
	if membership.Role == role {
		return nil
	}
	if membership.Role == types.RoleOwner && role != types.RoleOwner {
		owners, err := s.memberships.CountOwners(ctx, nil, tenantID, objectiveID)
		if err != nil {
			return err
		}
		if !CanRemoveOwner(owners, membership.Role) {
			return apierr.Conflict("last_owner")
		}
	}
	return s.memberships.UpdateRole(ctx, nil, tenantID, objectiveID, userObjectID, role)
}

func (s *membershipService) Remove(ctx context.Context, tenantID, objectiveID, userObjectID uuid.UUID) error {
	membership, err := s.memberships.Get(ctx, nil, tenantID, objectiveID, userObjectID)
	if err != nil {
		return err
	}
	if membership == nil {
		return apierr.NotFound("member_not_found")
	}
	if membership.Role == types.RoleOwner {
		owners, err := s.memberships.CountOwners(ctx, nil, tenantID, objectiveID)
		if err != nil {
			return err
		}
		if !CanRemoveOwner(owners, membership.Role) {
			return apierr.Conflict("last_owner")
		}
	}
	return s.memberships.Remove(ctx, nil, tenantID, objectiveID, userObjectID)
}
