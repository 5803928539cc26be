// Command renderpress batch-processes architectural renderings from a
// declarative manifest.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
