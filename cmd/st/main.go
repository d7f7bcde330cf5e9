// Command st is the symtrack client CLI: record symptoms and
// metrics, search them, and keep the device reconciled with the
// shared remote store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
