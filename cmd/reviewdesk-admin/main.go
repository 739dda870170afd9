// Command reviewdesk-admin manages users, groups, repositories, local sites
// and site configuration directly in the reviewdesk database.
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
