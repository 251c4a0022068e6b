// Package indexer coordinates background scans of open projects and
// publishes their results to the index store.
//
// # Basic Usage
//
//	table := registry.Freeze()
//	c := indexer.New(scanner.New(table, logger, nil), index.NewStore(),
//	    indexer.WithLogger(logger))
//	go c.Run(ctx)
//
//	_ = c.Opened(ctx, types.Project{Root: "/path/to/project"})
//	defs, _ := c.Definitions(ctx, "/path/to/project", "main")
//
// # State Machine
//
// Every open project is in exactly one of three states:
//
//	Idle     -- changed -->  Scanning  (scan launched)
//	Scanning -- changed -->  Queued
//	Queued   -- changed -->  Queued    (coalesced)
//	Scanning -- complete --> Idle      (published)
//	Queued   -- complete --> Scanning  (published, rescan launched)
//
// Opening a project starts the first scan. Closing drops the project and
// its index immediately; a scan still running for it is left to finish and
// its result is discarded. A scan can only complete in Idle through a bug,
// which panics.
//
// # Threading
//
// Run is the foreground loop. Every transition, publish and lookup runs on
// it, so the store needs no lock. Public methods post a closure to the loop
// and wait for it. Scans run on their own goroutines, receive only the
// prior snapshot, and hand back an immutable result together with the
// indexes built from it.
//
// Each open is tagged with a session id. A result whose session no longer
// matches the open entry, because the project was closed or closed and
// reopened, is never published.
package indexer
