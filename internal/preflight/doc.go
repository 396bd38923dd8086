// Package preflight provides readiness checks for the filesystem paths,
// remote archive, and external tools that ledaps depends on.
//
// The ancillary update command runs RunAll before touching the network so a
// missing or read-only ancillary root fails fast, and the CLI "ledaps status"
// command renders every check for operators.
package preflight
