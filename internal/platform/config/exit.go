package config

import (
	"fmt"
	"os"
)

// Exitf prints the formatted message to stderr and terminates the process
// with exit code 1. Used by cmd entry points for unrecoverable startup
// failures such as bad configuration or an unreachable database.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
