// Package password implements one-way password hashing with Argon2id by default and
// bcrypt for compatibility.
//
// # Output format
//
// Argon2id digests are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt digests use the standard $2a$/$2b$/$2y$ modular crypt format.
//
// [Multi] hashes with one algorithm and verifies digests from any configured
// algorithm, so stores that hold legacy bcrypt digests keep working. When
// [Multi.NeedsUpgrade] reports true the caller re-hashes on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum length)
// is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other webAuth package.
//   - Log plaintext passwords.
package password
