package main

import (
	"fmt"
	"os"

	"github.com/cyberkelysoatra/bazarkely-sub000/cmd/run"
)

func main() {
	if err := run.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error running ledger server: %v", err)
		os.Exit(1)
	}
}
