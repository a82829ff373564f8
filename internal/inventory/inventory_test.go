package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptor_Format(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want Format
	}{
		{"modern theme", Descriptor{IsTheme: true}, FormatModernTheme},
		{"legacy theme", Descriptor{IsTheme: true, IsLegacyTheme: true}, FormatLegacyTheme},
		{"legacy icon pack", Descriptor{IsLegacyIconPack: true}, FormatLegacyIconPack},
		{"plain app", Descriptor{}, FormatNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.desc.Format())
			assert.Equal(t, tt.want != FormatNone, tt.desc.ThemeCapable())
		})
	}
}

func TestDescriptor_UpdateTimestamp(t *testing.T) {
	never := Descriptor{InstallTime: 100}
	assert.Equal(t, int64(100), never.UpdateTimestamp(), "falls back to install time")

	updated := Descriptor{InstallTime: 100, UpdateTime: 250}
	assert.Equal(t, int64(250), updated.UpdateTimestamp())
}
