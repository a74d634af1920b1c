package codec

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSegment_AlphabetAndLength(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]+$`)

	for _, n := range []int{PrefixLength, CoreLength} {
		segment, err := RandomSegment(n)
		require.NoError(t, err)
		assert.Len(t, segment, n)
		assert.Regexp(t, pattern, segment)
	}
}

func TestRandomSegment_Distribution(t *testing.T) {
	// Not a statistical test; just catches a broken random source that
	// returns the same segment repeatedly.
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		segment, err := RandomSegment(CoreLength)
		require.NoError(t, err)
		seen[segment] = struct{}{}
	}
	assert.Greater(t, len(seen), 95)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "AB12-CDEF3456", Format("AB12", "CDEF3456"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		prefix  string
		core    string
		wantErr bool
	}{
		{name: "well formed", raw: "AB12-CDEF3456", prefix: "AB12", core: "CDEF3456"},
		{name: "missing separator", raw: "AB12CDEF3456", wantErr: true},
		{name: "short prefix", raw: "AB-CDEF3456", wantErr: true},
		{name: "short core", raw: "AB12-CDEF", wantErr: true},
		{name: "long core", raw: "AB12-CDEF34567", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "extra separator", raw: "AB12-CDEF-3456", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prefix, core, err := Parse(tc.raw)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.prefix, prefix)
			assert.Equal(t, tc.core, core)
		})
	}
}

func TestHashToken_DeterministicAndSensitive(t *testing.T) {
	pepper := []byte("0123456789abcdef")
	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	h1 := HashToken(pepper, "AB12-CDEF3456", salt)
	h2 := HashToken(pepper, "AB12-CDEF3456", salt)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)

	otherSalt, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, h1, HashToken(pepper, "AB12-CDEF3456", otherSalt))
	assert.NotEqual(t, h1, HashToken(pepper, "AB12-CDEF3457", salt))
	assert.NotEqual(t, h1, HashToken([]byte("fedcba9876543210"), "AB12-CDEF3456", salt))
}
