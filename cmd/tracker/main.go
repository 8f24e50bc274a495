package main

import (
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/output"
	"os"
)

func main() {
	if err := newRootCmd(output.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
