// Package engine executes trees of update actions.
//
// An Action performs its effect and may append child actions while doing
// so. The engine walks the tree depth-first in pre-order, on the calling
// goroutine, and aggregates the results.
//
// ARCHITECTURE:
//
// Execution Flow:
// 1. Attach the node's diagnostic attributes to a per-node logger
// 2. Perform the action, measuring elapsed time
// 3. If the result stops execution (status not OK, or any error entry),
// return it unchanged; the whole ancestor chain unwinds
// 4. Otherwise execute each child in order, merging its result; a child
// that stops execution propagates its status and ends the iteration
// 5. Return the merged result
//
// Business failures travel as result statuses. Only engine-level invariant
// violations and collaborator failures cross as Go errors
// (*RuntimeError), and they abort the whole request.
//
// CRITICAL PATTERNS:
//
// Single-Threaded Walk:
// Sibling order is meaningful; later siblings assume earlier ones have
// committed. Nothing runs concurrently and nothing suspends.
//
// Fresh Trees:
// Trees are built per request. Nodes are never shared between parents or
// reused across requests.
//
// Bounded Trees:
// Each request may perform at most WithMaxActions actions. Passing the
// bound is a *QuotaExceededError and aborts the request.
package engine
