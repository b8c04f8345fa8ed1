package drop

import (
	"testing"

	"github.com/nicolagi/filedrop/fileid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta(t *testing.T) {
	t.Run("key layout", func(t *testing.T) {
		assert.Equal(t, "3P94WsJRYnt8CVQY5PdvZ2ycqqRn:meta", MetaKey(fileid.ID("3P94WsJRYnt8CVQY5PdvZ2ycqqRn")))
	})
	t.Run("encoded form", func(t *testing.T) {
		assert.Equal(t, "name=a.png&type=image%2Fpng", Meta{Type: "image/png", Name: "a.png"}.Encode())
		assert.Equal(t, "type=", Meta{}.Encode())
	})
	t.Run("what you encode is what you parse", func(t *testing.T) {
		for _, before := range []Meta{
			{},
			{Type: "text/plain; charset=utf-8"},
			{Type: "application/pdf", Name: "a & b = c?.pdf"},
			{Name: "perché.txt"},
		} {
			after, err := ParseMeta(before.Encode())
			require.Nil(t, err)
			assert.Equal(t, before, after)
		}
	})
	t.Run("garbage is an error", func(t *testing.T) {
		_, err := ParseMeta("type=%zz")
		assert.NotNil(t, err)
	})
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `inline; filename="a.png"`, contentDisposition("a.png"))
	assert.Equal(t, `inline; filename="say \"hi\".txt"`, contentDisposition(`say "hi".txt`))
	assert.Equal(t, `inline; filename="__.txt"; filename*=UTF-8''%E6%97%A5%E6%9C%AC.txt`, contentDisposition("日本.txt"))
	assert.Equal(t,
		`inline; filename="r_sum: a@b=c, d's (1).txt"; filename*=UTF-8''r%C3%A9sum%3A%20a%40b%3Dc%2C%20d%27s%20%281%29.txt`,
		contentDisposition("résum: a@b=c, d's (1).txt"))
}

func TestExtValueEscape(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"", ""},
		{"plain.txt", "plain.txt"},
		{"!#$&+-.^_`|~", "!#$&+-.^_`|~"},
		{":@=,;/?", "%3A%40%3D%2C%3B%2F%3F"},
		{`"%*'()`, "%22%25%2A%27%28%29"},
		{"é", "%C3%A9"},
	} {
		assert.Equal(t, tc.want, extValueEscape(tc.in), "escaping %q", tc.in)
	}
}
