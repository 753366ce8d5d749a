package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Layout(t *testing.T) {
	t.Parallel()

	got := Message{ID: 1, Content: "Hello World!"}.Marshal()
	want := []byte{
		0x01, 0x00, 0x00, 0x00, // id
		0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // length 12
		'H', 'e', 'l', 'l', 'o', ' ', 'W', 'o', 'r', 'l', 'd', '!',
	}
	assert.Equal(t, want, got)
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	m := Message{ID: 0xDEADBEEF, Content: "grüße"}
	got, err := Unmarshal(m.Marshal())
	require.NoError(t, err)
	assert.Equal(t, m, got)

	empty, err := Unmarshal(Message{ID: 7}.Marshal())
	require.NoError(t, err)
	assert.Equal(t, Message{ID: 7}, empty)
}

func TestUnmarshal_Errors(t *testing.T) {
	t.Parallel()

	valid := Message{ID: 1, Content: "abc"}.Marshal()

	tests := []struct {
		wantErr error
		name    string
		data    []byte
	}{
		{name: "empty", data: nil, wantErr: ErrTruncated},
		{name: "short header", data: valid[:11], wantErr: ErrTruncated},
		{name: "short content", data: valid[:len(valid)-1], wantErr: ErrTruncated},
		{name: "trailing", data: append(append([]byte{}, valid...), 0x00), wantErr: ErrTrailingData},
		{name: "huge length", data: []byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, wantErr: ErrTruncated},
		{name: "bad utf8", data: Message{Content: "\xff\xfe"}.Marshal(), wantErr: ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Unmarshal(tt.data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBinaryInterfaces(t *testing.T) {
	t.Parallel()

	in := Message{ID: 3, Content: "x"}
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Message
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, in, out)
	assert.Equal(t, `#3 "x"`, out.String())

	require.Error(t, out.UnmarshalBinary([]byte{1}))
	assert.Equal(t, in, out, "failed unmarshal leaves the value alone")
}

func FuzzUnmarshal(f *testing.F) {
	f.Add(Message{ID: 1, Content: "Hello World!"}.Marshal())
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := Unmarshal(data)
		if err != nil {
			return
		}
		if got := m.Marshal(); string(got) != string(data) {
			t.Fatalf("re-encoding differs: %x != %x", got, data)
		}
	})
}
