// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMessagesReachLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Infof("live: listening on %s", ":9000")
	Warnw("validator dropped frames", "malformed", 3)
	Debugf("pdr: step at %d", 42)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "live: listening on :9000", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(3), entries[1].ContextMap()["malformed"])
	assert.Equal(t, "pdr: step at 42", entries[2].Message)
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(true))
	assert.NotNil(t, Logger())
	Sync()
}
