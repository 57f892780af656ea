package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
)

// Actor is the authenticated principal calling a service
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the actor carries role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.HasRole(models.RoleAdmin)
}

// RequestMeta describes the client behind a request, recorded on audit entries
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

type requestMetaKey struct{}

// WithRequestMeta attaches client metadata to ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
