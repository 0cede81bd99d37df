package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "http://www.vienna-rss.com/development", "http://www.vienna-rss.com/development"},
		{"uppercase host", "https://WWW.Example.COM/Path", "https://www.example.com/Path"},
		{"port kept", "http://example.com:8080/a b", "http://example.com:8080/a%20b"},
		{"query and fragment kept", "https://example.com/p?q=1&r=2#frag", "https://example.com/p?q=1&r=2#frag"},
		{"lowercase escapes normalised", "http://example.com/%d9%86", "http://example.com/%D9%86"},
		{"lowercase query escapes normalised", "http://example.com/p?q=%d9%86&r=a%2fb", "http://example.com/p?q=%D9%86&r=a%2Fb"},
		{"non-ascii query encoded", "http://example.com/p?q=é&x=1", "http://example.com/p?q=%C3%A9&x=1"},
		{"escaped slash preserved", "http://example.com/a%2Fb", "http://example.com/a%2Fb"},
		{"ip literal", "http://127.0.0.1:9000/x", "http://127.0.0.1:9000/x"},
		{"underscore host", "http://my_site.example.com/", "http://my_site.example.com/"},
		{"empty", "", ""},
		{"relative passthrough", "www.example.com/foo", "www.example.com/foo"},
		{"unparseable passthrough", "http://[::1", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalLink(tt.in))
		})
	}
}

func TestCanonicalLink_IDNEquivalence(t *testing.T) {
	unicode := CanonicalLink("http://ουτοπία.δπθ.gr/نجيب_محفوظ/")
	encoded := CanonicalLink("http://xn--kxae4bafwg.xn--pxaix.gr/%D9%86%D8%AC%D9%8A%D8%A8_%D9%85%D8%AD%D9%81%D9%88%D8%B8/")

	assert.Equal(t, encoded, unicode)
	assert.Equal(t, "http://xn--kxae4bafwg.xn--pxaix.gr/%D9%86%D8%AC%D9%8A%D8%A8_%D9%85%D8%AD%D9%81%D9%88%D8%B8/", unicode)

	unicode = CanonicalLink("http://ουτοπία.δπθ.gr/نجيب?q=محفوظ#نجيب")
	encoded = CanonicalLink("http://xn--kxae4bafwg.xn--pxaix.gr/%D9%86%D8%AC%D9%8A%D8%A8?q=%d9%85%d8%ad%d9%81%d9%88%d8%b8#%D9%86%D8%AC%D9%8A%D8%A8")

	assert.Equal(t, encoded, unicode)
	assert.Equal(t, "http://xn--kxae4bafwg.xn--pxaix.gr/%D9%86%D8%AC%D9%8A%D8%A8?q=%D9%85%D8%AD%D9%81%D9%88%D8%B8#%D9%86%D8%AC%D9%8A%D8%A8", unicode)
}

func TestEnclosureFilename(t *testing.T) {
	assert.Equal(t, "vienna_logo.png", EnclosureFilename("http://vienna-rss.sourceforge.net/img/vienna_logo.png"))
	assert.Equal(t, "a.mp3", EnclosureFilename("http://example.com/a.mp3?x=1"))
	assert.Equal(t, "", EnclosureFilename("http://example.com"))
	assert.Equal(t, "", EnclosureFilename(""))
	assert.Equal(t, "file.ogg", EnclosureFilename("file.ogg"))
	assert.Equal(t, "my%20episode.mp3", EnclosureFilename("http://example.com/casts/my%20episode.mp3"))
}
