// Package store provides the SQL-backed record repository.
//
// The store holds:
//   - Records: encoded record content with mimetype, deleted flag and timestamps
//   - Relations: directed links between records (volume to head, enrichment
//     to common record, common record to authority record)
//   - Queue: downstream notifications per provider
//   - Holdings: which agencies hold which bibliographic ids
//   - Record index: searchable subfield values of live records
//   - Double record keys: single-use confirmation tokens with an expiry
//   - Users: bcrypt password hashes per user and group
//
// # Relation Semantics
//
// A relation from A to B is read by kind:
//   - Same bibliographic id, different agency: A is an enrichment of B
//   - Different bibliographic id: A is a child of B
//
// Link replaces all outgoing relations of A; LinkAppend adds one.
//
// # Read-Your-Writes
//
// Every method commits before returning, so a later call in the same request
// sees earlier writes. The SQLite pool is limited to one connection.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Postgres is supported through the pgx database/sql driver; queries are
// written with ? placeholders and rebound to $n.
package store
