package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceID_Stable(t *testing.T) {
	id := InstanceID()
	assert.True(t, strings.HasPrefix(id, "POS-"))
	assert.Equal(t, id, InstanceID())
}
