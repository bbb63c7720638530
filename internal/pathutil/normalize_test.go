package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Basic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"root", "/", "/"},
		{"already normalised", "/src/main.ts", "/src/main.ts"},
		{"double slashes", "//src//main.ts", "/src/main.ts"},
		{"no leading slash", "src/main.ts", "/src/main.ts"},
		{"trailing slash", "/src/main.ts/", "/src/main.ts"},
		{"bare relative", "src", "/src"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"/", "/src/main.ts", "//src//main.ts", "src/main.ts", "/src/main.ts/", "/a/b/c/"}
	for _, in := range inputs {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "Normalize must be idempotent for %q", in)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := Normalize("")
		assert.ErrorIs(t, err, ErrPathNull)
	})

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, 4097)
		for i := range long {
			long[i] = 'a'
		}
		_, err := Normalize(string(long))
		assert.ErrorIs(t, err, ErrPathTooLong)
	})

	t.Run("null byte", func(t *testing.T) {
		_, err := Normalize("/foo\x00bar")
		assert.ErrorIs(t, err, ErrPathNullByte)
	})

	t.Run("control char", func(t *testing.T) {
		_, err := Normalize("/foo\x01bar")
		assert.ErrorIs(t, err, ErrPathControlChars)
	})

	for _, ch := range []string{"<", ">", ":", `"`, "|", "?", "*"} {
		t.Run("windows invalid "+ch, func(t *testing.T) {
			_, err := Normalize("/foo" + ch + "bar")
			assert.ErrorIs(t, err, ErrPathWindowsInvalid)
		})
	}
}
