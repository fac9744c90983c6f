// Package globflags holds flag values shared across the command tree.
package globflags

// ConfigPath is bound to the persistent --config flag. Empty means the
// built-in defaults are used.
var ConfigPath string
