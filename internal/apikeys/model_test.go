package apikeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, 3+32)
	assert.Equal(t, "sk_", key[:3])

	other, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
