// Package marc provides the bibliographic record model used by the update
// engine.
//
// A Record is an ordered list of fields. A Field has a three character name,
// a two character indicator and an ordered list of subfields. Field names
// starting with a lowercase letter are DBC internal fields (letter fields).
//
// Key design constraints:
//   - Records are plain values; Clone before mutating a shared record
//   - Reader helpers never fail; a missing value is the empty string
//   - Writer helpers mutate in place and return nothing
//   - JSON tags use snake_case
//
// This package imports nothing internal. Every other internal package may
// import marc.
package marc
