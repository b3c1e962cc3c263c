package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebsiteSignalsShallowPass(t *testing.T) {
	client := &fakeClient{pages: map[string]string{
		"https://acme.test":         `<html>info@acme.test <a href="https://facebook.com/acme">fb</a></html>`,
		"https://acme.test/contact": `<html>sales@acme.test</html>`,
	}}
	f := newTestFetcher(&fakeRenderer{pages: map[string]string{}}, client)

	signals := f.websiteSignals(context.Background(), "https://acme.test", browserOpts(), 0)

	assert.ElementsMatch(t, []string{"info@acme.test", "sales@acme.test"}, signals.Emails)
	assert.Equal(t, "https://facebook.com/acme", signals.Socials["Facebook"])
}

func TestWebsiteSignalsDeepPass(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://acme.test":              `<html>one@acme.test <a href="https://acme.test/contact-page">Contact</a></html>`,
		"https://acme.test/contact-page": `<html>two@acme.test</html>`,
	}}
	f := newTestFetcher(renderer, &fakeClient{})

	signals := f.websiteSignals(context.Background(), "https://acme.test", browserOpts(), 0)

	assert.ElementsMatch(t, []string{"one@acme.test", "two@acme.test"}, signals.Emails)
}

func TestWebsiteSignalsStopsAtEmailGoal(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://acme.test": `<html>aa@acme.test bb@acme.test cc@acme.test
<a href="https://acme.test/contact">Contact</a></html>`,
		"https://acme.test/contact": `<html>dd@acme.test</html>`,
	}}
	f := newTestFetcher(renderer, &fakeClient{})

	signals := f.websiteSignals(context.Background(), "https://acme.test", browserOpts(), 0)

	assert.Len(t, signals.Emails, 3)
	assert.False(t, renderer.saw("https://acme.test/contact"))
}

func TestWebsiteSignalsToleratesTotalFailure(t *testing.T) {
	f := newTestFetcher(&fakeRenderer{pages: map[string]string{}}, &fakeClient{})

	signals := f.websiteSignals(context.Background(), "https://dead.test", browserOpts(), 0)

	assert.Empty(t, signals.Emails)
	assert.NotNil(t, signals.Socials)
}

func TestContactLinks(t *testing.T) {
	html := `<html><body>
<a href="https://acme.test/contact">x</a>
<a href="https://acme.test/pricing">About our company</a>
<a href="https://other.test/contact">external</a>
<a href="https://acme.test/contact">dup</a>
<a href="https://acme.test/blog">Blog</a>
</body></html>`

	links := contactLinks(html, "https://acme.test")
	assert.Equal(t, []string{
		"https://acme.test/contact",
		"https://acme.test/pricing",
	}, links)
}

func TestJoinURL(t *testing.T) {
	got, err := joinURL("https://acme.test", "/contact")
	assert.NoError(t, err)
	assert.Equal(t, "https://acme.test/contact", got)

	got, err = joinURL("https://acme.test/deep/page", "/about")
	assert.NoError(t, err)
	assert.Equal(t, "https://acme.test/about", got)
}
