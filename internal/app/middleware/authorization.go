package middleware

import (
	"context"
	"errors"

	"campcal/internal/app/commands"
	"campcal/internal/app/queries"
)

var ErrNotPermitted = errors.New("middleware: staff member may not change reservations")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type capabilityKey struct{}

// WithCapability records whether the staff member behind ctx may issue
// mutating requests. Permission resolution itself happens upstream.
func WithCapability(ctx context.Context, canMutate bool) context.Context {
	return context.WithValue(ctx, capabilityKey{}, canMutate)
}

func CanMutate(ctx context.Context) bool {
	v, _ := ctx.Value(capabilityKey{}).(bool)
	return v
}

// CapabilityAuthorizer refuses every command when the capability is absent.
// Queries always pass.
type CapabilityAuthorizer struct{}

func (CapabilityAuthorizer) Authorize(ctx context.Context, message any) error {
	if _, ok := message.(commands.Command); ok && !CanMutate(ctx) {
		return ErrNotPermitted
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
