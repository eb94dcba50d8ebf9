package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/types"
)

func TestCreateCheckinGuards(t *testing.T) {
	log := testLogger(t)
	keyResults := newFakeKeyResultRepo()
	checkins := newFakeCheckinRepo()
	tenantID := uuid.New()
	svc := NewCheckinService(nil, log, keyResults, checkins, nil)

	t.Run("unknown key result", func(t *testing.T) {
		_, err := svc.Create(context.Background(), tenantID, uuid.New(), uuid.New(), CreateCheckinInput{Value: 10})
		assertAPIError(t, err, "kr_not_found")
	})

	t.Run("already completed", func(t *testing.T) {
		kr, err := keyResults.Create(context.Background(), nil, &types.KeyResult{
			TenantID:     tenantID,
			ObjectiveID:  uuid.New(),
			Title:        "Activate 500 accounts",
			TargetValue:  fptr(500),
			CurrentValue: fptr(500),
		})
		if err != nil {
			t.Fatalf("seed kr: %v", err)
		}
		_, err = svc.Create(context.Background(), tenantID, kr.ID, uuid.New(), CreateCheckinInput{Value: 600})
		assertAPIError(t, err, "kr_already_completed")
	})

	t.Run("over-achieved stays blocked", func(t *testing.T) {
		kr, _ := keyResults.Create(context.Background(), nil, &types.KeyResult{
			TenantID:     tenantID,
			ObjectiveID:  uuid.New(),
			Title:        "Reduce ticket backlog",
			TargetValue:  fptr(100),
			CurrentValue: fptr(130),
		})
		_, err := svc.Create(context.Background(), tenantID, kr.ID, uuid.New(), CreateCheckinInput{Value: 10})
		assertAPIError(t, err, "kr_already_completed")
	})
}
