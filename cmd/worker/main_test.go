package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_InvalidModeFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := run("cron", logger, func() {
		t.Fatal("wait must not be reached for an invalid mode")
	})
	assert.ErrorContains(t, err, `invalid mode "cron"`)
}
