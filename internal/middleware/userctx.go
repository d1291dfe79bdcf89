package middleware

import "context"

type partyKey struct{}

// Party is the authenticated caller.
type Party struct {
	ID       int64
	Username string
}

func WithParty(ctx context.Context, p Party) context.Context {
	return context.WithValue(ctx, partyKey{}, p)
}

func PartyFrom(ctx context.Context) (Party, bool) {
	p, ok := ctx.Value(partyKey{}).(Party)
	return p, ok && p.ID > 0
}
