// Package poller implements the client-side polling loops that substitute for
// push delivery: a user loop awaiting resolution of a just-sent request, and a
// provider loop refreshing the pending queue.
package poller

// Session identifies the logged-in actor a poller works for. It is created on
// login and handed to the poller explicitly; pollers never consult ambient
// global state.
type Session struct {
	// ActorID is the user or provider identifier the loop polls on behalf of.
	ActorID string
	// Token is the bearer token the session was issued. Carried for
	// transports that need it; the in-process sources here do not.
	Token string
}
