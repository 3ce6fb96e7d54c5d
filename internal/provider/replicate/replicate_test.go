package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrNoToken)

	c, err := New("r8_test")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
