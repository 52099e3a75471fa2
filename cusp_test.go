package cusp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobalEnvironment(t *testing.T) {
	assert.Exactly(t, globalEnv, GetEnvironment())

	first := GetEnvironment()
	first.(*envState).name = "foo"
	assert.Exactly(t, globalEnv, GetEnvironment())

	resetEnv()
	second := GetEnvironment()
	assert.NotEqual(t, first, second)

	SetEnvironment(first)
	assert.Exactly(t, first, GetEnvironment())

	resetEnv()
}
