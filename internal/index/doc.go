// Package index folds project snapshots into name-keyed indexes and holds
// the published snapshot and indexes of every open project.
//
// The Store is owned by a single goroutine. Callers that need concurrent
// access go through the indexer's coordinator loop.
package index
