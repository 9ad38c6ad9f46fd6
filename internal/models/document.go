package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// documentFields has the layout of Document without its methods.
type documentFields Document

// HasSource reports whether the document encodes to the object it was
// decoded from rather than to its typed fields.
func (d *Document) HasSource() bool {
	return d.source != nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	if d.source != nil {
		return d.source, nil
	}

	return json.Marshal(documentFields(d))
}

// UnmarshalJSON accepts any JSON object. Fields of the wrong type decode to
// their zero value.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return errDocumentNotObject
	}

	doc := Document{
		Profile:            lenientProfile(fields["profile"]),
		Socials:            lenientSocials(fields["socials"]),
		Links:              lenientLinks(fields["links"]),
		Theme:              lenientString(fields["theme"]),
		Animation:          lenientString(fields["animation"]),
		BackgroundEffect:   lenientString(fields["backgroundEffect"]),
		BackgroundImageURL: lenientString(fields["backgroundImageUrl"]),
	}

	typed, err := json.Marshal(documentFields(doc))
	if err != nil {
		return err
	}
	if !sameJSON(data, typed) {
		doc.source, err = normalizeSource(data)
		if err != nil {
			return err
		}
	}
	*d = doc

	return nil
}

// normalizeSource compacts and HTML-escapes data the way json.Marshal
// treats marshaler output, so a stored source reads back byte-identical.
func normalizeSource(data []byte) (json.RawMessage, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())

	return escaped.Bytes(), nil
}

func sameJSON(a, b []byte) bool {
	var left, right any
	if json.Unmarshal(a, &left) != nil || json.Unmarshal(b, &right) != nil {
		return false
	}

	return reflect.DeepEqual(left, right)
}

func lenientObject(data json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return nil
	}

	return fields
}

func lenientString(data json.RawMessage) string {
	var value string
	if json.Unmarshal(data, &value) != nil {
		return ""
	}

	return value
}

func lenientInt(data json.RawMessage) int {
	var value int
	if json.Unmarshal(data, &value) != nil {
		return 0
	}

	return value
}

func lenientProfile(data json.RawMessage) Profile {
	fields := lenientObject(data)

	return Profile{
		Name:     lenientString(fields["name"]),
		Bio:      lenientString(fields["bio"]),
		ImageURL: lenientString(fields["imageUrl"]),
	}
}

func lenientLinks(data json.RawMessage) []Link {
	var items []json.RawMessage
	if json.Unmarshal(data, &items) != nil || items == nil {
		return nil
	}

	links := make([]Link, 0, len(items))
	for _, item := range items {
		fields := lenientObject(item)
		links = append(links, Link{
			ID:          lenientInt(fields["id"]),
			Title:       lenientString(fields["title"]),
			URL:         lenientString(fields["url"]),
			Description: lenientString(fields["description"]),
		})
	}

	return links
}

func lenientSocials(data json.RawMessage) Socials {
	socials, err := readSocials(data, false)
	if err != nil {
		return nil
	}

	return socials
}
