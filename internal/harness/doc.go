// Package harness runs update scenarios against a fresh in-memory store.
//
// A scenario seeds records, relations, holdings and users, sends one or
// more update requests through the real update service and asserts on
// the responses, the executed action trees and the final repository
// state. Rendered trees can be compared against golden files with
// RunWithGolden.
//
// Scenario files are YAML:
//
//	name: create-volume
//	description: A volume below an existing head record is linked to it.
//	setup:
//	  records:
//	    - lines: |
//	        001 00 *a50000001 *b870970
//	        004 00 *rn *ah
//	  users:
//	    - {user: cat, group: "010100", password: secret}
//	flow:
//	  - request:
//	      authentication: {user: cat, group: "010100", password: secret}
//	      schema: allowall
//	      record: |
//	        001 00 *a50000002 *b870970
//	        004 00 *rn *ab
//	        014 00 *a50000001
//	    expect:
//	      status: ok
//	assertions:
//	  - type: record_exists
//	    record: {id: "50000002", agency: 870970}
//
// Every run uses a fixed clock and fixed tracking ids, so the rendered
// trees are stable across runs.
package harness
