// cmd/cli/main.go
package main

import (
	"fmt"
	"os"

	_ "github.com/keshon/server-relay/internal/commands/core"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
