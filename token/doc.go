// Package token mints and validates the engine's signed tokens.
//
// Tokens are signed, not encrypted: they carry subject, scope, an optional
// session-chain id, and timestamps, never secret material. A token is valid
// only for its scope — twofactorauth tokens exist solely to be exchanged for
// session tokens after second-factor verification, and [Manager.VerifyScope]
// rejects any cross-scope use.
package token
