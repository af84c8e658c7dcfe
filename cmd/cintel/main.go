// Command cintel is the multi-party encrypted crime-intelligence
// registry client.
package main

import (
	"fmt"
	"os"

	// Link every ledger backend so config can select any of them.
	_ "github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/etcd"
	_ "github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/memory"
	_ "github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/redis"
	_ "github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger/sqlite"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
