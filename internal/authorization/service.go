package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Service decides whether an actor may perform an administrative action.
type Service interface {
	// Authorize checks actor, acting as role, against object and action.
	// Actors are "api_key:<id>" or "system".
	Authorize(ctx context.Context, actor string, role string, object string, action string) error
}
