package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"  Go-Lang!! ": "golang",
		"  Foo  ":      "foo",
		"Foo   Bar":    "foobar",
		"C++":          "c",
		"web3.0":       "web30",
		"Ünïcode":      "ncode",
		"":             "",
		"  ":           "",
		"!!!":          "",
		"Mixed\tCase":  "mixedcase",
	}
	for in, expect := range cases {
		assert.Equal(t, expect, NormalizeTag(in), "normalize %q", in)
	}
}

func TestNormalizeTagIdempotent(t *testing.T) {
	inputs := []string{"  Go-Lang!! ", "Hello World", "ÀBC", "a_b-c.d", "123 Go", "", "---"}
	for _, in := range inputs {
		once := NormalizeTag(in)
		assert.Equal(t, once, NormalizeTag(once), "normalize %q twice", in)
	}
}

func TestNormalizeTagsDedupesInOrder(t *testing.T) {
	in := []string{"Go", "go", "GO!", " Rust ", "", "???", "rust", "Zig"}
	assert.Equal(t, []string{"go", "rust", "zig"}, NormalizeTags(in))
}

func TestNormalizeTagsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeTags(nil))
	assert.NotNil(t, NormalizeTags(nil))
}

func TestCapTags(t *testing.T) {
	tags := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, CapTags(tags, 2))
	assert.Equal(t, tags, CapTags(tags, 4))
	assert.Equal(t, tags, CapTags(tags, 10))
	assert.Equal(t, tags, CapTags(tags, 0))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off`, escapeLike("50% off"))
	assert.Equal(t, `snake\_case`, escapeLike("snake_case"))
	assert.Equal(t, `C:\\temp`, escapeLike(`C:\temp`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
