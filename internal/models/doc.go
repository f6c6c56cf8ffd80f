// Package models defines the domain entities for crate's catalog mirror.
//
// The package contains two categories of types:
//
// 1. Catalog records: flat rows materialized from a remote collection
//   - [Release], [Artist], [Label], [Genre], [Style] : entities keyed by their natural ids
//   - [ReleaseCollection], [ReleaseArtist], [ReleaseLabel], [ReleaseGenre], [ReleaseStyle] : junction pairs
//
// Every record implements [Record] and reports its [Kind], which knows the
// table, columns and summary key the row belongs to.
//
// 2. Persistent entities with a lifecycle
//   - [User] : an account holding catalog API access tokens
//   - [Collection] : the single per-user container that releases are linked to
//
// [Summary] is the result of one synchronization run.
package models
