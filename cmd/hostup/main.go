package main

import (
	"os"

	"github.com/arthur-debert/hostup/pkg/errors"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps config and filesystem problems to 2, everything else
// to 1.
func exitCode(err error) int {
	switch errors.GetErrorCode(err) {
	case errors.ErrConfigParse, errors.ErrConfigInvalid, errors.ErrConfigFormat,
		errors.ErrFileNotFound, errors.ErrFileAccess:
		return 2
	}
	return 1
}
