package authz

import "context"

type actorContextKey struct{}

type effectiveSetContextKey struct{}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor placed by the middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ContextWithEffectiveSet stores the resolved permission set in context.
func ContextWithEffectiveSet(ctx context.Context, set EffectiveSet) context.Context {
	return context.WithValue(ctx, effectiveSetContextKey{}, set)
}

// EffectiveSetFromContext extracts the set placed by the middleware.
func EffectiveSetFromContext(ctx context.Context) (EffectiveSet, bool) {
	set, ok := ctx.Value(effectiveSetContextKey{}).(EffectiveSet)
	return set, ok
}
