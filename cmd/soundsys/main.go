// SPDX-License-Identifier: EPL-2.0

// Command soundsys plays, renders and converts sound assets through the
// sound library.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
