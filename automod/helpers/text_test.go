package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextURLs(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(ExtractTextURLs("no links here"))
	assert.Equal([]string{"https://example.com/page"}, ExtractTextURLs("see https://example.com/page for more"))
	assert.Len(ExtractTextURLs("http://a.example.com and https://b.example.com"), 2)
}

func TestExtractInviteCodes(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(ExtractInviteCodes("https://example.com/not-an-invite"))
	assert.Equal([]string{"abc123"}, ExtractInviteCodes("join chat.gg/abc123"))
	assert.Equal([]string{"first", "second"}, ExtractInviteCodes("chat.example.com/invite/first then chat.gg/second"))
	assert.True(ContainsInvite("chatapp.example.com/invite/xyz"))
	assert.False(ContainsInvite("plain text"))
}

func TestCountUppercase(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, CountUppercase("lower only"))
	assert.Equal(10, CountUppercase("AAAAAAAAAA1"))
	assert.Equal(1, CountUppercase("Aaaaaaaaaa"))
	// non-latin uppercase still counts
	assert.Equal(2, CountUppercase("ÄÖäö"))
}

func TestContentFingerprint(t *testing.T) {
	assert := assert.New(t)

	a := ContentFingerprint("Buy My Stuff   NOW")
	b := ContentFingerprint("buy my stuff now")
	c := ContentFingerprint("something else entirely")
	assert.Equal(a, b)
	assert.NotEqual(a, c)
}
