package memdefault

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLConfig mirrors the allow-list knobs of the original PHP-HTMLPurifier
// port (he-core's Purifier/PurifierConfig): which tags survive, which
// attributes survive per tag, and whether HTML is allowed at all or should
// be escaped outright.
type HTMLConfig struct {
	AllowHTML         bool
	AllowedTags       map[string]bool
	AllowedAttributes map[string][]string
}

// DefaultHTMLConfig matches the original purifier's default: a small set of
// inline formatting tags plus anchors, href/title only.
func DefaultHTMLConfig() HTMLConfig {
	return HTMLConfig{
		AllowHTML:   true,
		AllowedTags: map[string]bool{"p": true, "br": true, "strong": true, "em": true, "a": true},
		AllowedAttributes: map[string][]string{
			"a": {"href", "title"},
		},
	}
}

// dangerousTags is the Go-tree-walking equivalent of the Rust purifier's
// regex-based dangerous_patterns: these never survive regardless of config,
// because golang.org/x/net/html parses them as elements we can drop outright
// rather than needing to regex them out of raw text.
var dangerousTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Form:     true,
	atom.Input:    true,
	atom.Textarea: true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Style:    true,
}

// dangerousAttrPrefixes blocks the event-handler attributes the original
// purifier strips via onload=/onerror=/onclick=/... patterns, plus any
// javascript:/vbscript: URL scheme.
func isDangerousAttr(key, val string) bool {
	if strings.HasPrefix(strings.ToLower(key), "on") {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(val))
	return strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "vbscript:")
}

// HTMLSanitizer is the default collab.Sanitizer, grounded on
// he-core/src/security/purifier.rs but implemented as an allow-list
// tree-walk over golang.org/x/net/html instead of a series of regex passes,
// which cannot be made safe against nested/obfuscated markup the way a
// parser can.
type HTMLSanitizer struct {
	cfg HTMLConfig
}

// NewHTMLSanitizer builds a sanitizer for cfg.
func NewHTMLSanitizer(cfg HTMLConfig) *HTMLSanitizer {
	return &HTMLSanitizer{cfg: cfg}
}

// CleanHTML parses input as an HTML fragment and re-serializes only the
// allow-listed tags/attributes, dropping everything else to text.
func (s *HTMLSanitizer) CleanHTML(input string) string {
	if !s.cfg.AllowHTML {
		return html.EscapeString(input)
	}

	nodes, err := html.ParseFragment(strings.NewReader(input), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return html.EscapeString(input)
	}

	var b strings.Builder
	for _, n := range nodes {
		s.render(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func (s *HTMLSanitizer) render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		if dangerousTags[n.DataAtom] {
			return
		}
		if !s.cfg.AllowedTags[n.Data] {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				s.render(b, c)
			}
			return
		}
		allowed := s.cfg.AllowedAttributes[n.Data]
		b.WriteString("<")
		b.WriteString(n.Data)
		for _, attr := range n.Attr {
			if isDangerousAttr(attr.Key, attr.Val) {
				continue
			}
			if !attrAllowed(allowed, attr.Key) {
				continue
			}
			b.WriteString(" ")
			b.WriteString(attr.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attr.Val))
			b.WriteString(`"`)
		}
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			s.render(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteString(">")
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			s.render(b, c)
		}
	}
}

func attrAllowed(allowed []string, key string) bool {
	for _, a := range allowed {
		if a == key {
			return true
		}
	}
	return false
}

// CleanURL rejects javascript:/vbscript:/data: schemes and anything that
// fails to parse, mirroring the dangerous-scheme half of the original
// purifier's pattern list.
func (s *HTMLSanitizer) CleanURL(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return trimmed, true
	default:
		return "", false
	}
}
