// Package render turns a biolink document into the public HTML page.
//
// The document is first mapped onto a page model that carries only
// presentation decisions (palette, classes, which optional layers exist),
// then the model is executed against an html/template, which escapes every
// document-derived value for the context it lands in. Rendering is pure:
// equal documents produce identical bytes.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

//go:embed templates/page.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

type palette struct {
	body        template.CSS
	linkClass   string
	socialClass string
}

var palettes = map[string]palette{
	models.ThemeLight: {
		body:        "background-color: #ffffff; color: #000000;",
		linkClass:   "border-gray-300 bg-white hover:bg-gray-50",
		socialClass: "text-gray-600 hover:text-black",
	},
	models.ThemeDark: {
		body:        "background-color: #1a1a1a; color: #ffffff;",
		linkClass:   "border-gray-700 bg-gray-800 hover:bg-gray-700",
		socialClass: "text-gray-300 hover:text-white",
	},
}

type link struct {
	Title       string
	URL         string
	Description string
}

type social struct {
	Platform string
	Icon     string
	URL      string
}

// page is everything the template needs, already decided.
type page struct {
	Title              string
	Theme              string
	Palette            template.CSS
	BackgroundImageURL string
	Particles          bool
	Profile            models.Profile
	Links              []link
	LinkClass          string
	Socials            []social
	SocialClass        string
	Bootstrap          *models.Document
}

func newPage(doc *models.Document) page {
	if doc == nil {
		doc = &models.Document{}
	}

	theme := models.ThemeLight
	if doc.Theme == models.ThemeDark {
		theme = models.ThemeDark
	}
	colors := palettes[theme]

	links := make([]link, 0, len(doc.Links))
	for _, l := range doc.Links {
		links = append(links, link{
			Title:       l.Title,
			URL:         l.URL,
			Description: l.Description,
		})
	}

	socials := make([]social, 0, len(doc.Socials))
	for _, s := range doc.Socials {
		socials = append(socials, social{
			Platform: s.Platform,
			Icon:     strings.ToLower(s.Platform),
			URL:      s.URL,
		})
	}

	return page{
		Title:              doc.Profile.Name,
		Theme:              theme,
		Palette:            colors.body,
		BackgroundImageURL: doc.BackgroundImageURL,
		Particles:          doc.BackgroundEffect == models.EffectParticles,
		Profile:            doc.Profile,
		Links:              links,
		LinkClass:          colors.linkClass,
		Socials:            socials,
		SocialClass:        colors.socialClass,
		Bootstrap:          doc,
	}
}

// Write renders doc to w.
func Write(w io.Writer, doc *models.Document) error {
	return pageTemplate.Execute(w, newPage(doc))
}

// Page renders doc into a byte slice. Nothing is returned on failure, so a
// caller never sends half a page.
func Page(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
