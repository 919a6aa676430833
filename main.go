package main

import (
	"errors"
	"os"
)

// exitIncomplete signals a finished run with at least one failed activity.
const exitIncomplete = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errBatchIncomplete) {
			os.Exit(exitIncomplete)
		}

		exitOnError(err)
	}
}
