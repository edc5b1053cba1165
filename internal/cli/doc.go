// Package cli implements the enki command line.
//
// Commands:
//
//	enki validate <definition>         check a YAML/CUE definition
//	enki raise <definition> <event>    raise one event and print its trace
//	enki run <scenario>                run one scenario
//	enki test <path>...                run scenarios, compare golden traces
//	enki trace --db <journal> [id]     inspect journaled raises
//
// Every command accepts --format text|json and --verbose. Defaults for
// --format, --db and the log level come from ENKI_* variables.
package cli
