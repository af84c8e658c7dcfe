package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cintel version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cintel %s (schema %s)\n", version.String(), schema.SchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
