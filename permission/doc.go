// Package permission defines the closed role set, opaque permission names, and the
// route classification table used by webAuth authorization checks.
//
// # Roles
//
// [Role] is a closed enumeration. The zero value [RoleUnknown] is never granted
// anything: every decision site switches exhaustively over the known roles and falls
// through to deny.
//
// # Route classification
//
// [RouteTable] maps request paths onto [Classification] flags using case-sensitive,
// left-anchored prefix matching. A path may carry several flags at once.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import webAuth, jwt, or session.
package permission
