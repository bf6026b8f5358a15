package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/naeap/journal/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:     version.Name,
		Short:   "NAEAP journal website",
		Version: version.String(),
	}
	root.AddCommand(newServeCommand(), newSeedCommand())

	if err := root.Execute(); err != nil {
		log.Fatalf("❌ %s failed: %v", version.Name, err)
	}
}
