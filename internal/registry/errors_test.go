package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("com.example.red")))
	assert.True(t, IsConflict(NewConflict("com.example.red")))
	assert.True(t, IsUnsupported(NewUnsupported("selection insert")))

	assert.False(t, IsNotFound(NewConflict("com.example.red")))
	assert.False(t, IsConflict(nil))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	err := fmt.Errorf("looking up theme: %w", NewNotFound("com.example.red"))
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "pkg=com.example.red")
}

func TestInstallState_Processing(t *testing.T) {
	assert.True(t, StateInstalling.Processing())
	assert.True(t, StateUpdating.Processing())
	assert.False(t, StateInstalled.Processing())
	assert.False(t, StateUnknown.Processing())
}

func TestInstallState_WireValues(t *testing.T) {
	// On-disk values; a change here breaks every existing database.
	assert.Equal(t, 0, int(StateUnknown))
	assert.Equal(t, 1, int(StateInstalling))
	assert.Equal(t, 3, int(StateInstalled))
	assert.Equal(t, 5, int(StateUpdating))
}

func TestCapabilityMap_HasAndClone(t *testing.T) {
	var zero CapabilityMap
	assert.False(t, zero.Has(ComponentIcons))
	assert.Nil(t, zero.Clone())

	caps := CapabilityMap{ComponentIcons: true, ComponentFonts: false}
	assert.True(t, caps.Has(ComponentIcons))
	assert.False(t, caps.Has(ComponentFonts))

	clone := caps.Clone()
	clone[ComponentIcons] = false
	assert.True(t, caps.Has(ComponentIcons), "clone must not alias the original")
}
