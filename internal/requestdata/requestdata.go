package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData carries the authenticated identity extracted from the bearer
// token for the lifetime of one request.
type RequestData struct {
	TokenString  string
	TenantID     uuid.UUID
	UserObjectID uuid.UUID
	Email        string
	DisplayName  string
}
