// Package app wires application dependencies for the CLI.
//
// It loads Config from the environment, builds the durable cache, the
// replica client and the directory, and exposes them via the Wire struct
// for commands to use.
package app
