// Package main is the entry point for the enrollment chaos experiment driver.
package main

import (
	"errors"
	"os"

	"enrollment/cmd/chaos/app"
)

// Exit codes: 0 the run passed, 1 the run failed, 2 the run could not be executed.
func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		if errors.Is(err, app.ErrRunFailed) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
