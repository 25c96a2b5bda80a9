package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	name := ObjectName("42", "Avatar.PNG")

	assert.True(t, strings.HasPrefix(name, "images/42/"))
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, name, ObjectName("42", "Avatar.PNG"))
	assert.NotContains(t, name, "Avatar")
}

func TestObjectNameWithoutExtension(t *testing.T) {
	name := ObjectName("42", "avatar")

	assert.True(t, strings.HasPrefix(name, "images/42/"))
	assert.Len(t, strings.TrimPrefix(name, "images/42/"), 36)
}
