package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

const (
	darkBody  = "background-color: #1a1a1a; color: #ffffff;"
	lightBody = "background-color: #ffffff; color: #000000;"
	darkLink  = "border-gray-700 bg-gray-800 hover:bg-gray-700"
	lightLink = "border-gray-300 bg-white hover:bg-gray-50"
)

func render(t *testing.T, doc *models.Document) string {
	t.Helper()
	out, err := Page(doc)
	require.NoError(t, err)
	return string(out)
}

func fullDocument() *models.Document {
	return &models.Document{
		Profile: models.Profile{Name: "Jane", Bio: "Hello there", ImageURL: "https://img.test/jane.png"},
		Socials: models.Socials{
			{Platform: "GitHub", URL: "https://g.test"},
			{Platform: "twitter", URL: "https://t.test"},
		},
		Links: []models.Link{
			{ID: 1, Title: "Site", URL: "https://x.test", Description: "my site"},
			{ID: 2, Title: "Blog", URL: "https://blog.test"},
		},
		Theme:              models.ThemeDark,
		Animation:          "fade",
		BackgroundEffect:   models.EffectParticles,
		BackgroundImageURL: "https://bg.test/b.jpg",
	}
}

func bootstrapJSON(t *testing.T, html string) string {
	t.Helper()
	const marker = "window.__BIOLINK_DATA__ = "
	start := strings.Index(html, marker)
	require.NotEqual(t, -1, start)
	rest := html[start+len(marker):]
	end := strings.Index(rest, ";\n")
	require.NotEqual(t, -1, end)
	return strings.TrimSpace(rest[:end])
}

func TestPageIsDeterministic(t *testing.T) {
	for _, doc := range []*models.Document{models.DefaultDocument(), fullDocument(), nil} {
		first := render(t, doc)
		second := render(t, doc)
		assert.Equal(t, first, second)
	}
}

func TestPageDefaultDocument(t *testing.T) {
	html := render(t, models.DefaultDocument())

	assert.Contains(t, html, "<title>@YourName</title>")
	assert.Contains(t, html, `<div class="space-y-4 links">`)
	assert.NotContains(t, html, "biolink-link")
	assert.NotContains(t, html, "biolink-social")
	assert.NotContains(t, html, "<img")
	assert.Contains(t, html, lightBody)
}

func TestPageScenarioDarkWithOneLink(t *testing.T) {
	doc := &models.Document{
		Profile:          models.Profile{Name: "Jane"},
		Links:            []models.Link{{ID: 1, Title: "Site", URL: "https://x.test"}},
		Socials:          models.Socials{{Platform: "twitter", URL: "https://t.test"}},
		Theme:            models.ThemeDark,
		BackgroundEffect: models.EffectNone,
	}

	html := render(t, doc)

	assert.Contains(t, html, "<h1 class=\"text-2xl font-bold mb-2\">Jane</h1>")
	assert.Equal(t, 1, strings.Count(html, "biolink-link "))
	assert.Contains(t, html, `<span class="font-medium">Site</span>`)
	assert.Equal(t, 1, strings.Count(html, "biolink-social "))
	assert.Contains(t, html, `<i class="fab fa-twitter"></i>`)
	assert.Contains(t, html, darkBody)
	assert.Contains(t, html, darkLink)
}

func TestPagePaletteIsExclusive(t *testing.T) {
	dark := fullDocument()
	html := render(t, dark)
	assert.Contains(t, html, darkBody)
	assert.Contains(t, html, darkLink)
	assert.NotContains(t, html, lightBody)
	assert.NotContains(t, html, lightLink)
	assert.NotContains(t, html, "hover:text-black")

	for _, theme := range []string{models.ThemeLight, "", "solarized"} {
		light := fullDocument()
		light.Theme = theme
		html := render(t, light)
		assert.Contains(t, html, lightBody, theme)
		assert.Contains(t, html, lightLink, theme)
		assert.NotContains(t, html, darkBody, theme)
		assert.NotContains(t, html, darkLink, theme)
		assert.NotContains(t, html, "hover:text-white", theme)
	}
}

func TestPageBackgroundImage(t *testing.T) {
	withImage := render(t, fullDocument())
	assert.Contains(t, withImage, "background-image: url('https://bg.test/b.jpg')")
	assert.Contains(t, withImage, `<div class="bg-overlay"></div>`)

	doc := fullDocument()
	doc.BackgroundImageURL = ""
	withoutImage := render(t, doc)
	assert.NotContains(t, withoutImage, "background-image")
	assert.NotContains(t, withoutImage, "bg-overlay")
}

func TestPageParticles(t *testing.T) {
	withParticles := render(t, fullDocument())
	assert.Contains(t, withParticles, "particles.min.js")
	assert.Contains(t, withParticles, `<div id="particles-js"`)
	assert.Contains(t, withParticles, "particlesJS('particles-js'")
	assert.Contains(t, withParticles, "number: { value: 80 }")

	for _, effect := range []string{models.EffectNone, "", "Particles", "snow"} {
		doc := fullDocument()
		doc.BackgroundEffect = effect
		html := render(t, doc)
		assert.NotContains(t, html, "particles.min.js", effect)
		assert.NotContains(t, html, "particles-js", effect)
		assert.NotContains(t, html, "particlesJS", effect)
	}
}

func TestPageProfileOrderAndImage(t *testing.T) {
	html := render(t, fullDocument())

	img := strings.Index(html, `<img src="https://img.test/jane.png"`)
	name := strings.Index(html, ">Jane</h1>")
	bio := strings.Index(html, ">Hello there</p>")
	require.NotEqual(t, -1, img)
	require.NotEqual(t, -1, name)
	require.NotEqual(t, -1, bio)
	assert.Less(t, img, name)
	assert.Less(t, name, bio)

	doc := fullDocument()
	doc.Profile.ImageURL = ""
	assert.NotContains(t, render(t, doc), "<img")
}

func TestPageLinks(t *testing.T) {
	html := render(t, fullDocument())

	site := strings.Index(html, ">Site</span>")
	blog := strings.Index(html, ">Blog</span>")
	require.NotEqual(t, -1, site)
	require.NotEqual(t, -1, blog)
	assert.Less(t, site, blog)

	assert.Equal(t, 1, strings.Count(html, `<p class="text-sm text-gray-500 mt-1">`))
	assert.Contains(t, html, `<p class="text-sm text-gray-500 mt-1">my site</p>`)
	assert.Equal(t, 4, strings.Count(html, `target="_blank" rel="noopener noreferrer"`))
}

func TestPageToleratesDuplicateAndMissingLinkIDs(t *testing.T) {
	doc := fullDocument()
	doc.Links = []models.Link{
		{ID: 7, Title: "A", URL: "https://a.test"},
		{ID: 7, Title: "B", URL: "https://b.test"},
		{Title: "C", URL: "https://c.test"},
	}

	assert.Equal(t, 3, strings.Count(render(t, doc), "biolink-link "))
}

func TestPageSocials(t *testing.T) {
	html := render(t, fullDocument())

	github := strings.Index(html, `<i class="fab fa-github"></i>`)
	twitter := strings.Index(html, `<i class="fab fa-twitter"></i>`)
	require.NotEqual(t, -1, github)
	require.NotEqual(t, -1, twitter)
	assert.Less(t, github, twitter)
	assert.Contains(t, html, `aria-label="GitHub"`)
}

func TestPageEscapesDocumentFields(t *testing.T) {
	doc := &models.Document{
		Profile: models.Profile{
			Name:     `<script>alert("name")</script>`,
			Bio:      `<b onclick="x()">bio</b>`,
			ImageURL: `javascript:alert(1)`,
		},
		Links: []models.Link{
			{ID: 1, Title: `"><img src=x onerror=alert(1)>`, URL: `javascript:alert(2)`},
		},
		Socials: models.Socials{
			{Platform: `x" onmouseover="alert(3)`, URL: "https://t.test"},
		},
		BackgroundImageURL: `x'); } body { color: red; } .y { background: url('`,
	}

	html := render(t, doc)

	assert.NotContains(t, html, `<script>alert("name")`)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, `<b onclick`)
	assert.NotContains(t, html, `<img src=x`)
	assert.NotContains(t, html, `href="javascript:`)
	assert.NotContains(t, html, `src="javascript:`)
	assert.NotContains(t, html, `" onmouseover="alert(3)`)
	assert.NotContains(t, html, "body { color: red; }")
	assert.NotContains(t, bootstrapJSON(t, html), "</script")
}

func TestPageEmbedsDocument(t *testing.T) {
	doc := fullDocument()

	decoded, err := models.DecodeDocument([]byte(bootstrapJSON(t, render(t, doc))))
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestPageNilDocument(t *testing.T) {
	html := render(t, nil)

	assert.Contains(t, html, "<title></title>")
	assert.Contains(t, html, lightBody)
}

func TestPageMalformedDocument(t *testing.T) {
	const body = `{"profile":{"name":42,"bio":"still here"},"links":[{"title":"T","url":"https://x.test","pinned":true}],"extra":{"kept":"<b>"}}`
	doc, err := models.DecodeDocument([]byte(body))
	require.NoError(t, err)

	html := render(t, doc)

	assert.Contains(t, html, "<title></title>")
	assert.Contains(t, html, `<h1 class="text-2xl font-bold mb-2"></h1>`)
	assert.Contains(t, html, ">still here</p>")
	assert.Equal(t, 1, strings.Count(html, "biolink-link "))
	assert.JSONEq(t, body, bootstrapJSON(t, html))
}
