// Package tokens manages per-tenant OAuth2 token sets for calls to the
// directory API.
//
// Token sets are persisted in a statestore.Store under "token:<tenantID>",
// optionally sealed with a secrets.Sealer. GetValidToken returns the cached
// access token while it is outside the skew margin (one minute by default)
// and otherwise performs a refresh-token grant through golang.org/x/oauth2.
// Concurrent refreshes for one tenant are coalesced with
// golang.org/x/sync/singleflight, so a burst of callers produces exactly one
// request to the provider and they all observe the same result.
//
// Coalescing is per process. Several processes sharing one store may each
// refresh once; whichever writes last wins, and a provider that rotates
// refresh tokens on every use can invalidate the loser's token.
//
// Bootstrap:
//
//	mgr := tokens.NewManager(store, tokens.WithSealer(sealer))
//	redirect := mgr.AuthCodeURL(creds, state)
//	// ... provider redirects back with ?code=...
//	ts, err := mgr.ExchangeAuthorizationCode(ctx, "acme", code, creds)
//
// Steady state:
//
//	ts, err := mgr.GetValidToken(ctx, "acme", creds)
//	req.Header.Set("Authorization", ts.Authorization())
//
// A failed refresh returns ErrRefreshFailed and is not retried internally.
package tokens
