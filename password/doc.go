// Package password provides argon2id hashing and timing-safe verification
// of stored credential hashes in PHC string format.
package password
