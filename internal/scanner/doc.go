// Package scanner walks a project tree and produces a new ProjectSnapshot.
//
// A scan enumerates every non-hidden regular file under the project root and
// its extra directories. Files whose modification time has not advanced past
// the prior snapshot's entry reuse the cached items; every other file goes
// through the parser strategy table.
//
// # Basic Usage
//
//	sc := scanner.New(table, logger, nil)
//
//	result, err := sc.Scan(ctx, scanner.Request{
//	    Project: types.Project{Root: "/src/app", ExtraDirs: []string{"../shared"}},
//	    Prior:   previous, // nil on the first scan
//	})
//
//	fmt.Printf("parsed %d, reused %d, failed %d\n",
//	    result.Stats.FilesParsed, result.Stats.FilesReused, result.Stats.FilesFailed)
//
// # Error Handling
//
// Per-file and per-entry errors never abort a scan:
//   - Enumeration errors (permission denied, vanished entries): logged, entry skipped
//   - Strategy failures: logged, the file is left out of the new snapshot
//
// Scan only returns an error when its context is cancelled.
//
// # Concurrency
//
// Cache misses are parsed by a bounded worker pool (default runtime.NumCPU())
// and re-assembled in walk order, so a given tree always yields the same
// snapshot order. The scanner reads the prior snapshot and returns a new one;
// it never touches shared state.
package scanner
