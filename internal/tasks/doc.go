// Package tasks synchronizes a user's remote record collection into the local catalog.
//
// # Pipeline
//
// [CatalogEngine.Synchronize] runs one linear pipeline per user:
//
//  1. resolve the local user and their access token ([CredentialsProvider])
//  2. fetch every page of the remote collection ([CollectionFetcher])
//  3. find or create the user's collection row ([Store])
//  4. extract releases, artists, labels, genres and styles ([Extract])
//  5. insert the five entity kinds concurrently
//  6. build and insert the five junction kinds concurrently ([BuildRelations])
//
// Steps 5 and 6 are each a join barrier ([shared.Join]): every insert in the
// group must succeed, and the first failure ends the run. Junction rows are only
// written after all entity rows exist.
//
// Writes are insert-or-ignore, so nothing is rolled back on failure. Running the
// sync again completes whatever the failed run left out, and a run over an
// unchanged collection reports zero new rows.
//
// # Progress Reporting
//
// Progress is sent on an optional channel with select/default, so a slow reader
// drops updates instead of stalling the run. Updates stop once Synchronize returns.
//
// # Concurrency
//
// Concurrent calls for the same user share one run through singleflight and all
// receive its summary. Callers that join an in-flight run get no progress updates.
package tasks
