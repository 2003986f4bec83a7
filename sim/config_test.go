package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyRandomParamsNoOpWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlasmaViscosity = 1.2
	cfg.ApplyRandomParams()
	assert.Equal(t, 1.2, cfg.PlasmaViscosity)
}

func TestDefaultConfigLeavesRandomParamsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.RandomParams)
}
