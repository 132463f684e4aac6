// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebAPIVersionSupportsSetTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    bool
	}{
		{version: "2.11.4", want: true},
		{version: "2.11.5", want: true},
		{version: "2.12.0", want: true},
		{version: "3.0.0", want: true},
		{version: "2.11.3", want: false},
		{version: "2.10.0", want: false},
		{version: "", want: false},
		{version: "not-a-version", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, webAPIVersionSupportsSetTags(tt.version))
		})
	}
}
