// Package postgres implements webAuth.CredentialStore on PostgreSQL through
// database/sql and the pgx driver.
//
// Reset-token consumption and two-factor commits are single conditional
// UPDATE statements, so concurrent callers cannot both succeed. Schema
// migrations are embedded and applied with Migrate.
package postgres
