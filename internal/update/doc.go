// Package update builds the action tree for one update request.
//
// An UpdateRequest action validates the request and appends the actions
// that carry it out. Most actions decide their children at run time from
// repository content: whether the record exists, its holdings, the rules
// of the libraries involved and whether its classification changed.
//
// ARCHITECTURE:
//
// Request flow:
//
//	UpdateRequest
//	  ValidateOperation
//	    AuthenticateUser
//	    ValidateSchema
//	    ValidateRecord | DoubleRecordFrontendAndValidate
//	  UpdateOperation
//	    AuthenticateRecord
//	    DoubleRecordFrontend (only when no validation ran first)
//	    UpdateCommon | UpdateEnrichment | UpdateLocal (one per split record)
//	    DoubleRecordChecking
//
// Lifecycle:
// UpdateCommon dispatches to UpdateRecord, which picks Create, Overwrite or
// DeleteCommon. Single and volume records share one implementation per
// step; a Variant selects the assembly that differs between them.
//
// Primitives:
// Store, Delete, Link, LinkAuthority, RemoveLinks, Enqueue and
// EnqueuePHHoldings perform the repository writes. Every other action
// only decides which primitives to append.
//
// CRITICAL PATTERNS:
//
// Immutable request context:
// A RequestContext is built once per request and passed to every action by
// value. Actions never write to it; derived values are computed where they
// are needed.
//
// Closed set of kinds:
// Every action reports one of the Kind constants as its name. Kind.Valid
// lists them, and the tests check that every kind renders a distinct name.
//
// Required fields:
// Each action checks its own fields at the start of Perform and returns a
// *RequiredFieldsError when one is missing. The engine reports it as a
// MISSING_FIELDS runtime error and aborts the request.
package update
