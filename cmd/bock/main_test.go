package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/bock/internal/apperr"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("history: /x: %w", apperr.ErrRootNotFound), exitRootNotFound},
		{fmt.Errorf("history: /x: %w", apperr.ErrNotRepository), exitNotRepository},
		{fmt.Errorf("wiki path: %w", apperr.ErrRootNotAbsolute), exitRootRelative},
		{cli.Exit("bad config", exitConfig), exitConfig},
		{errors.New("boom"), exitFailure},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
