// Package auth provides user accounts and session tokens for BlueMe.
//
// Accounts are stored in SQLite keyed by normalised email. Passwords are
// hashed with bcrypt and sessions are stateless HS256 JWTs carrying the
// user id and email, so authenticated requests validate by signature
// without touching the database.
package auth
