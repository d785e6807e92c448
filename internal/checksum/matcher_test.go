package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestMatcher(t *testing.T) {
	data := []byte("Client Name,NRIC\nTan,S1234567D\n")
	m := NewMatcher(Sum(data))

	ok, err := m.Match(data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match(append(data, ' '))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewMatcher("").Match(data)
	assert.Error(t, err)
}
