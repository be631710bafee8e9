package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	e1 := errors.New("stop server")
	e2 := errors.New("close listener")
	err := Combine(e1, nil, e2)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf("key <%v> not in defaults", "webPort")
	assert.EqualError(t, err, "key <webPort> not in defaults")
}
