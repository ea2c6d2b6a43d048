package main

import (
	"context"
	"fmt"
	"os"

	"costbook/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), cli.DefaultBootstrap, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
