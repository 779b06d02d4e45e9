// Package storage defines the record-set and grievance-log boundaries used
// by the built-in capabilities, plus sentinel errors and context helpers
// shared by the backends.
//
// Backends live in subpackages: jsonfile (the default, one JSON array per
// file), memory (tests and ephemeral deployments), postgres and sqlite.
package storage
