package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Social is one platform shortcut of the public page.
type Social struct {
	Platform string
	URL      string
}

// Socials is the platform -> URL mapping of a document. On the wire it is a
// JSON object; in memory it is a slice so the key order chosen by the owner
// survives decode, storage and encode.
type Socials []Social

var errSocialsNotObject = errors.New("socials must be a JSON object")

// Get returns the URL stored for platform.
func (s Socials) Get(platform string) (string, bool) {
	for _, social := range s {
		if social.Platform == platform {
			return social.URL, true
		}
	}

	return "", false
}

// Set replaces the URL of an existing platform in place or appends a new one.
func (s *Socials) Set(platform, url string) {
	for i := range *s {
		if (*s)[i].Platform == platform {
			(*s)[i].URL = url
			return
		}
	}
	*s = append(*s, Social{Platform: platform, URL: url})
}

// MarshalJSON writes the socials as a JSON object, keys in slice order.
func (s Socials) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, social := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(social.Platform)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(social.URL)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. A repeated key
// keeps the position of its first occurrence and the value of its last one.
// null and {} both decode to a nil Socials.
func (s *Socials) UnmarshalJSON(data []byte) error {
	result, err := readSocials(data, true)
	if err != nil {
		return err
	}
	*s = result

	return nil
}

// readSocials walks the object in data. Unless strict, entries whose value
// is not a string are skipped instead of failing the whole object.
func readSocials(data []byte, strict bool) (Socials, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errSocialsNotObject
	}

	var result Socials
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		platform, ok := token.(string)
		if !ok {
			return nil, errSocialsNotObject
		}

		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("social %q: %w", platform, err)
		}
		var url string
		if err := json.Unmarshal(value, &url); err != nil {
			if strict {
				return nil, fmt.Errorf("social %q: %w", platform, err)
			}
			continue
		}
		result.Set(platform, url)
	}

	if _, err := decoder.Token(); err != nil {
		return nil, err
	}

	return result, nil
}
