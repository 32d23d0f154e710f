// dje detects license notices in source trees by matching documents
// against an indexed rule catalog.
package main

import (
	"os"

	"github.com/balusarakesh/dje-license-search/cmd/dje/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
