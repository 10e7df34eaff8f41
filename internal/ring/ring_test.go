package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWrap(t *testing.T) {
	b := New(6)
	require.Equal(t, 8, b.Cap())

	_, err := b.Write([]byte("OK\r\n+U"))
	require.NoError(t, err)
	assert.Equal(t, 3, b.IndexByte('\n'))
	assert.Equal(t, []byte("OK\r\n"), b.Next(4))

	// 跨越尾部
	_, err = b.Write([]byte("USO"))
	require.NoError(t, err)
	_, err = b.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, b.IndexByte('\n'))
	assert.Equal(t, []byte("+UUSO\n"), b.Next(6))
	assert.Equal(t, -1, b.IndexByte('\n'))

	_, err = b.Write(make([]byte, 9))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _ = b.Write([]byte("abc"))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Next(1))
}
