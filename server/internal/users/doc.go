// Package users holds the in-memory user directory and per-user ticker
// subscriptions for stockwatch-server.
//
// Users are keyed by email. Login is lookup-or-create and never duplicates a
// user; ids have the form "user_<unix-millis>" and are unique within the
// process. Subscribe and Unsubscribe are idempotent. Nothing is persisted: a
// restart loses every user.
//
// Errors are the sentinels ErrValidation and ErrNotFound, wrapped with
// context; match them with errors.Is.
package users
