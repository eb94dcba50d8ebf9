package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/types"
)

func TestCanRemoveOwner(t *testing.T) {
	tests := []struct {
		name       string
		ownerCount int64
		targetRole types.Role
		want       bool
	}{
		{"last owner", 1, types.RoleOwner, false},
		{"one of two owners", 2, types.RoleOwner, true},
		{"editor with single owner", 1, types.RoleEditor, true},
		{"viewer", 1, types.RoleViewer, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRemoveOwner(tt.ownerCount, tt.targetRole); got != tt.want {
				t.Fatalf("CanRemoveOwner(%d, %s) = %v, want %v", tt.ownerCount, tt.targetRole, got, tt.want)
			}
		})
	}
}

func TestResolveTenantOpenImplicitViewer(t *testing.T) {
	t.Setenv("AUTHZ_MODE", AuthzModeTenantOpen)
	memberships := newFakeMembershipRepo()
	svc := NewAuthzService(testLogger(t), memberships)

	access, err := svc.Resolve(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !access.CanView {
		t.Fatalf("implicit access = %+v, want view", access)
	}
	if access.CanEdit || access.CanDelete || access.CanManageMembers {
		t.Fatalf("implicit access = %+v, want view only", access)
	}
	if access.IsMember {
		t.Fatal("implicit access should not be a membership")
	}
}

func TestResolveMembersOnlyDeniesNonMembers(t *testing.T) {
	t.Setenv("AUTHZ_MODE", AuthzModeMembersOnly)
	memberships := newFakeMembershipRepo()
	svc := NewAuthzService(testLogger(t), memberships)

	tenantID := uuid.New()
	objectiveID := uuid.New()
	ownerID := uuid.New()
	if _, err := memberships.Add(context.Background(), nil, &types.Membership{
		TenantID:     tenantID,
		ObjectiveID:  objectiveID,
		UserObjectID: ownerID,
		Role:         types.RoleOwner,
	}); err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	access, err := svc.Resolve(context.Background(), tenantID, objectiveID, uuid.New())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if access.CanView || access.CanEdit {
		t.Fatalf("non-member access = %+v, want none", access)
	}

	access, err = svc.Resolve(context.Background(), tenantID, objectiveID, ownerID)
	if err != nil {
		t.Fatalf("Resolve owner failed: %v", err)
	}
	if !access.CanManageMembers {
		t.Fatalf("owner access = %+v, want full", access)
	}
}

func TestResolveForWriteBootstrapsFirstOwner(t *testing.T) {
	t.Setenv("AUTHZ_MODE", AuthzModeTenantOpen)
	memberships := newFakeMembershipRepo()
	svc := NewAuthzService(testLogger(t), memberships)

	tenantID := uuid.New()
	objectiveID := uuid.New()
	userID := uuid.New()

	access, err := svc.ResolveForWrite(context.Background(), tenantID, objectiveID, userID)
	if err != nil {
		t.Fatalf("ResolveForWrite failed: %v", err)
	}
	if access.Role != types.RoleOwner || !access.CanManageMembers {
		t.Fatalf("bootstrap access = %+v, want owner", access)
	}

	stored, err := memberships.Get(context.Background(), nil, tenantID, objectiveID, userID)
	if err != nil || stored == nil {
		t.Fatalf("bootstrap membership not persisted: %v %v", stored, err)
	}
	if stored.Role != types.RoleOwner {
		t.Fatalf("bootstrap role = %s, want owner", stored.Role)
	}

	// A second writer must not get the same treatment.
	other, err := svc.ResolveForWrite(context.Background(), tenantID, objectiveID, uuid.New())
	if err != nil {
		t.Fatalf("second ResolveForWrite failed: %v", err)
	}
	if other.CanEdit {
		t.Fatalf("second writer access = %+v, want denial", other)
	}
}

func TestResolveForWriteMembersOnlyNoBootstrap(t *testing.T) {
	t.Setenv("AUTHZ_MODE", AuthzModeMembersOnly)
	memberships := newFakeMembershipRepo()
	svc := NewAuthzService(testLogger(t), memberships)

	tenantID := uuid.New()
	objectiveID := uuid.New()
	userID := uuid.New()

	access, err := svc.ResolveForWrite(context.Background(), tenantID, objectiveID, userID)
	if err != nil {
		t.Fatalf("ResolveForWrite failed: %v", err)
	}
	if access.CanView || access.CanEdit {
		t.Fatalf("non-member access = %+v, want none", access)
	}

	stored, err := memberships.Get(context.Background(), nil, tenantID, objectiveID, userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored != nil {
		t.Fatalf("membership %+v was created, want none", stored)
	}
}
