package main

import (
	"fmt"
	"os"

	"github.com/nhle/mail-assistant/cmd/mail-assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
