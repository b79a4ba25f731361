// Package gatehouse is an embeddable authentication and session-issuance
// core: it decides whether a credential presentation (password, magic link
// request, TOTP code, or recovery code) is valid, enforces per-identity and
// per-origin abuse limits, and issues scoped signed tokens.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// gatehouse is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([UserDirectory], [Notifier], [LinkBuilder]),
// and value types. Flow orchestration and rate limiting internals live under
// internal/ and are never exported. Persistent storage of identities, email
// delivery, link formatting, and HTTP transport are owned by the caller and
// injected as narrow interfaces.
//
// # What this package must NOT do
//
//   - Expose Redis clients or counter-store details in its public API.
//   - Reveal, through any link-flow outcome, whether an email address has an
//     account (link flows always report generic success).
//   - Accept a twofactorauth-scope token where a session-scope token is
//     required, or vice versa.
package gatehouse
