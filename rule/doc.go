// Package rule parses and pretty-prints iRule-style Tcl scripts.
//
// The parser models only the block structure of a script: when events,
// procedures, if/elseif/else chains, switch statements, and a handful of
// statements referring to network objects (pool, node, snat, ...).
// Anything else is kept as opaque text, so the printer can re-emit scripts
// it does not fully understand. The printer normalises indentation, brace
// placement, and blank lines; the text of conditions and values is left
// byte-for-byte intact.
package rule
