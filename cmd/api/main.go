package main

import (
	"fmt"
	"os"

	"github.com/PratikDhanave/web-analytics-service/internal/cli"
)

var version = "dev"

// main boots the service: config → store → schema → HTTP server.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := cli.NewRootCmd(version)
	cmd.SetArgs(args)
	return cmd.Execute()
}
