// Package parser provides the pluggable strategies that extract symbol
// declarations and definitions from source files.
//
// # Strategies
//
// A Strategy claims a file by returning a non-empty item list, declines it by
// returning an empty list, or fails it by returning an error:
//
//	items, err := strategy.TryParse(ctx, "/src/list.c")
//	switch {
//	case err != nil:
//	    // failure for this file only
//	case len(items) == 0:
//	    // not applicable, try the next strategy
//	}
//
// Built-in strategies, by priority bucket:
//   - ExternalTool: CtagsStrategy runs universal-ctags with JSON output
//   - Structured: GoStrategy (go/ast) and TreeSitterStrategy (C, Python)
//   - Regex: RegexStrategy with configurable per-extension rules
//
// # Registration
//
// Strategies are registered into a Registry while the host starts up. Freeze
// ends registration and returns the immutable Table used by scans:
//
//	reg := parser.NewRegistry()
//	reg.MustRegister(parser.NewGoStrategy())
//	reg.MustRegister(parser.NewTreeSitterStrategy())
//	table := reg.Freeze()
//
//	// Any later Register call fails with ErrRegistryFrozen
//
// # Dispatch
//
// Table.Parse tries external tools first, then structured parsers, then
// regexes. The first non-empty result wins. A file every strategy declines
// contributes no items and is not an error. A strategy error is returned as
// *types.ParseError and is never converted into an empty result.
//
// # Locations
//
// Every strategy reports item locations as byte offsets of the symbol name.
// Strategies that only know line numbers report the offset of the line start.
package parser
