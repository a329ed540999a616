// Package password implements Warden's credential hashing.
//
// Passwords are hashed with Argon2id (memory-hard, via golang.org/x/crypto)
// against a caller-supplied random salt. Hash parameters are compiled
// constants; the salt is stored next to the hash in the users table, so a
// stored credential is always verifiable by re-deriving with the same salt.
//
// The raw password buffer handed to Hash and Verify is zeroed before the
// call returns, on success and failure alike.
package password
