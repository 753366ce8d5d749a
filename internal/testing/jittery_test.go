package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualPort_Loopback(t *testing.T) {
	t.Parallel()

	port := NewVirtualPort(JitterConfig{})
	n, err := port.Write([]byte{0x00, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 8)
	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF, 0xFF}, buf[:n])
	assert.Equal(t, []byte{0x00, 0xFF, 0xFF}, port.Written())
}

func TestVirtualPort_TimeoutReturnsZero(t *testing.T) {
	t.Parallel()

	port := NewVirtualPort(JitterConfig{})
	require.NoError(t, port.SetReadTimeout(5*time.Millisecond))

	start := time.Now()
	n, err := port.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestVirtualPort_FragmentedReadsKeepOrder(t *testing.T) {
	t.Parallel()

	port := NewVirtualPort(JitterConfig{Seed: 12345, FragmentReads: true})
	want := make([]byte, 200)
	for i := range want {
		want[i] = byte(i)
	}
	port.Inject(want)

	var got []byte
	buf := make([]byte, 64)
	for len(got) < len(want) {
		n, err := port.Read(buf)
		require.NoError(t, err)
		require.NotZero(t, n)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, want, got)
}

func TestVirtualPort_ResetAndClose(t *testing.T) {
	t.Parallel()

	port := NewVirtualPort(JitterConfig{})
	port.Loopback = false
	_, err := port.Write([]byte{1, 2})
	require.NoError(t, err)
	port.Inject([]byte{9})
	require.NoError(t, port.ResetInputBuffer())
	assert.Equal(t, 1, port.Resets())

	require.NoError(t, port.SetReadTimeout(time.Millisecond))
	n, err := port.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, port.Close())
	_, err = port.Write([]byte{1})
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = port.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrPortClosed)
}
