package hmc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// The HMC REST API returns Atom-style feeds whose content payloads use
// namespaces and field names that vary across controller versions. The
// codec therefore matches elements by local name only and callers consult
// an ordered list of field aliases.

// Link is an Atom link element.
type Link struct {
	Rel  string
	Href string
}

// Field is an element's or attribute's local name paired with its value.
type Field struct {
	Name  string
	Value string
}

// Entry is one feed entry, flattened: every descendant element with
// non-empty text and every attribute is collected in document order.
type Entry struct {
	ID     string
	Links  []Link
	Fields []Field
	Attrs  []Field
}

// ParseFeed extracts the entries of an Atom feed document.
func ParseFeed(data []byte) ([]Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var entries []Entry
	var cur *Entry
	entryDepth := 0
	depth := 0

	type frame struct {
		name string
		text strings.Builder
	}
	var stack []*frame

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed feed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "entry" && cur == nil {
				cur = &Entry{}
				entryDepth = depth
				continue
			}
			if cur == nil {
				continue
			}
			switch t.Name.Local {
			case "link":
				var l Link
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "rel":
						l.Rel = a.Value
					case "href":
						l.Href = a.Value
					}
				}
				if l.Href != "" {
					cur.Links = append(cur.Links, l)
				}
			default:
				for _, a := range t.Attr {
					if v := strings.TrimSpace(a.Value); v != "" {
						cur.Attrs = append(cur.Attrs, Field{Name: a.Name.Local, Value: v})
					}
				}
			}
			stack = append(stack, &frame{name: t.Name.Local})

		case xml.CharData:
			if cur != nil && len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if cur != nil {
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					if text := strings.TrimSpace(top.text.String()); text != "" {
						if top.name == "id" && cur.ID == "" {
							cur.ID = text
						}
						cur.Fields = append(cur.Fields, Field{Name: top.name, Value: text})
					}
				} else if depth == entryDepth && t.Name.Local == "entry" {
					entries = append(entries, *cur)
					cur = nil
				}
			}
			depth--
		}
	}

	return entries, nil
}

// Value returns the first non-empty element text matching the aliases, in
// alias priority order, falling back to attribute values.
func (e *Entry) Value(aliases ...string) string {
	for _, alias := range aliases {
		for _, f := range e.Fields {
			if f.Name == alias {
				return f.Value
			}
		}
	}
	for _, alias := range aliases {
		for _, a := range e.Attrs {
			if a.Name == alias {
				return a.Value
			}
		}
	}
	return ""
}

// MatchesName reports whether any aliased field or attribute equals name.
func (e *Entry) MatchesName(name string, aliases []string) bool {
	for _, alias := range aliases {
		for _, f := range e.Fields {
			if f.Name == alias && f.Value == name {
				return true
			}
		}
		for _, a := range e.Attrs {
			if a.Name == alias && a.Value == name {
				return true
			}
		}
	}
	return false
}

// SelfHref returns the entry's canonical href: the first link, or the Atom
// id as a fallback.
func (e *Entry) SelfHref() string {
	for _, l := range e.Links {
		if l.Rel == "self" {
			return l.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return e.ID
}

// TrailingSegment returns the last path segment of an href, the canonical
// resource identifier in the feed dialect.
func TrailingSegment(href string) string {
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// sessionTokenAliases are the element names that have carried the session
// token across HMC versions, in priority order.
var sessionTokenAliases = []string{
	"X-API-Session", "XAPISession", "ApiSession", "SessionID", "SessionId", "Token", "session",
}

// ParseSessionToken extracts a session token from a Logon response body.
// Returns the empty string when no token-bearing element is present.
func ParseSessionToken(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var fields []Field
	var names []string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			names = append(names, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(names) > 0 {
				name := names[len(names)-1]
				names = names[:len(names)-1]
				if v := strings.TrimSpace(text.String()); v != "" {
					fields = append(fields, Field{Name: name, Value: v})
				}
				text.Reset()
			}
		}
	}

	for _, alias := range sessionTokenAliases {
		for _, f := range fields {
			if f.Name == alias {
				return f.Value
			}
		}
	}
	return ""
}
