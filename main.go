package main

import (
	"fmt"
	"os"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
