package main

import (
	"testing"

	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"parse error", errors.New(errors.ErrConfigParse, "bad json"), 2},
		{"invalid config", errors.New(errors.ErrConfigInvalid, "bad shape"), 2},
		{"missing config dir", errors.New(errors.ErrFileNotFound, "gone"), 2},
		{"command failure", errors.New(errors.ErrCommandFailed, "exit 1"), 1},
		{"abort", errors.New(errors.ErrAborted, "user abort"), 1},
		{"registry", errors.New(errors.ErrRegistryUnknown, "no handler"), 1},
		{"plain error", assert.AnError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
