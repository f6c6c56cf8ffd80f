// Package repositories implements SQLite persistence for crate.
//
// Key Implementations:
//   - [UserRepository] : accounts and their catalog API tokens; also the credentials provider for sync runs
//   - [CatalogRepository] : the idempotent write side of a sync (collections, entities, junctions)
//   - [CollectionRepository] : the read side, listing and counting what a user's collection links to
//
// Catalog writes never update or delete. [BuildInsertIgnore] renders the
// insert-ignore statements for any [sqlbuilder.Flavor] so other stores can share them.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
