package shared

import "context"

type accountTypeContextKey struct{}

type actorContextKey struct{}

// ContextWithAccountType stores the caller's pricing tier in context.
func ContextWithAccountType(ctx context.Context, accountType string) context.Context {
	return context.WithValue(ctx, accountTypeContextKey{}, accountType)
}

// AccountTypeFromContext extracts the pricing tier from context.
func AccountTypeFromContext(ctx context.Context) string {
	at, _ := ctx.Value(accountTypeContextKey{}).(string)
	return at
}

// ContextWithActor stores the administrative actor identity in context.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the administrative actor identity from context.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
