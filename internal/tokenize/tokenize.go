// Package tokenize splits free text into plain-text and URL runs so that
// URLs can be rendered as hyperlinks in the generated LaTeX.
package tokenize

import (
	"fmt"
	"regexp"
	"strings"
)

// nonSpace matches one character that is not Unicode whitespace. RE2's \S
// only excludes ASCII whitespace.
const nonSpace = `[^\s\v\x1c-\x1f\x{85}\p{Z}]`

var (
	// searchPattern finds candidate URL runs.
	searchPattern = regexp.MustCompile(`(?:https?://|mailto:)` + nonSpace + `+`)
	// capturePattern splits a run found by searchPattern at the end of its scheme.
	capturePattern = regexp.MustCompile(`^(?P<protocol>https?://|mailto:)(?P<address>` + nonSpace + `+)$`)
)

// Kind classifies a token.
type Kind int

const (
	KindPlainText Kind = iota
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "PlainText"
	case KindURL:
		return "URL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Markup enumerates the rendering modes for tokens.
type Markup int

const (
	// MarkupPlain renders the token text verbatim.
	MarkupPlain Markup = iota
	// MarkupLink renders \href{<protocol><address>}{<address>}.
	MarkupLink
)

// Token is one classified run of the input text.
type Token struct {
	Kind     Kind
	Text     string // original substring
	Protocol string // URL only, e.g. "https://"
	Address  string // URL only, the part after the scheme
}

// PlainText builds a plain-text token.
func PlainText(text string) Token {
	return Token{Kind: KindPlainText, Text: text}
}

// URL builds a URL token from its two halves.
func URL(protocol, address string) Token {
	return Token{Kind: KindURL, Text: protocol + address, Protocol: protocol, Address: address}
}

// Markup returns the rendering mode for the token.
func (t Token) Markup() Markup {
	switch t.Kind {
	case KindURL:
		return MarkupLink
	default:
		return MarkupPlain
	}
}

// Render renders the token for inclusion in LaTeX.
func (t Token) Render() string {
	switch t.Markup() {
	case MarkupLink:
		return `\href{` + t.Protocol + t.Address + `}{` + t.Address + `}`
	case MarkupPlain:
		return t.Text
	default:
		panic(fmt.Sprintf("tokenize: unhandled markup %d", t.Markup()))
	}
}

func (t Token) String() string {
	if t.Kind == KindURL {
		return fmt.Sprintf("URL(%q, %q)", t.Protocol, t.Address)
	}
	return fmt.Sprintf("PlainText(%q)", t.Text)
}

// Text is an ordered sequence of tokens.
type Text []Token

// String reassembles the original input.
func (tt Text) String() string {
	var b strings.Builder
	for _, tok := range tt {
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Render renders every token in order.
func (tt Text) Render() string {
	var b strings.Builder
	for _, tok := range tt {
		b.WriteString(tok.Render())
	}
	return b.String()
}

// HasURL reports whether any token is a URL.
func (tt Text) HasURL() bool {
	for _, tok := range tt {
		if tok.Kind == KindURL {
			return true
		}
	}
	return false
}

// Tokenize partitions text into alternating plain and URL runs. Empty plain
// runs are omitted; the concatenation of all token texts equals text.
func Tokenize(text string) Text {
	matches := searchPattern.FindAllStringIndex(text, -1)
	tokens := make(Text, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			tokens = append(tokens, PlainText(text[last:m[0]]))
		}
		tokens = append(tokens, mustSplitURL(text[m[0]:m[1]]))
		last = m[1]
	}
	if last < len(text) {
		tokens = append(tokens, PlainText(text[last:]))
	}
	return tokens
}

// Render is shorthand for Tokenize(text).Render().
func Render(text string) string {
	return Tokenize(text).Render()
}

func mustSplitURL(run string) Token {
	sub := capturePattern.FindStringSubmatch(run)
	if sub == nil {
		panic(fmt.Sprintf("tokenize: run %q matched the search pattern but not the capture pattern", run))
	}
	return URL(sub[capturePattern.SubexpIndex("protocol")], sub[capturePattern.SubexpIndex("address")])
}
