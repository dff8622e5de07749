package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringPrefersLinkedVersion(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v0.3.1"
	assert.Equal(t, "v0.3.1", String())

	Version = ""
	assert.NotEmpty(t, String())
}
