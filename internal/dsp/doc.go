// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dsp holds the small signal-processing building blocks shared by
// the position corrector, feature extractor and gait analyzer: moving
// averages, a streaming peak detector and robust window statistics.
//
// Everything here is single-goroutine and does bounded work per sample.
package dsp
