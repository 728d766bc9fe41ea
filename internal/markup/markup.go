// Package markup converts short Markdown blocks (summaries, about-me text)
// into LaTeX body text.
package markup

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/cvbuilder/internal/tokenize"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Escape escapes LaTeX special characters in plain text.
func Escape(s string) string { return latexEscaper.Replace(s) }

func escapeTarget(url string) string { return strings.ReplaceAll(url, "%", `\%`) }

// ToLaTeX renders Markdown source as LaTeX. Bare URLs in text become \href
// links; raw HTML and images are dropped.
func ToLaTeX(src []byte) (string, error) {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	r := &renderer{src: src}
	if err := gmast.Walk(root, r.walk); err != nil {
		return "", err
	}
	r.flush()
	return tidy(r.out.String()), nil
}

type renderer struct {
	src    []byte
	out    strings.Builder
	text   strings.Builder
	inLink int
}

// flush emits buffered text. Text is buffered because the parser splits runs
// at delimiter characters, which would otherwise cut URLs in half.
func (r *renderer) flush() {
	if r.text.Len() == 0 {
		return
	}
	buffered := r.text.String()
	r.text.Reset()
	if r.inLink > 0 {
		r.out.WriteString(Escape(buffered))
		return
	}
	for _, tok := range tokenize.Tokenize(buffered) {
		switch tok.Markup() {
		case tokenize.MarkupLink:
			r.href(tok.Protocol+tok.Address, tok.Address)
		case tokenize.MarkupPlain:
			r.out.WriteString(Escape(tok.Text))
		}
	}
}

func (r *renderer) href(target, label string) {
	r.out.WriteString(`\href{`)
	r.out.WriteString(escapeTarget(target))
	r.out.WriteString(`}{`)
	r.out.WriteString(Escape(label))
	r.out.WriteString(`}`)
}

func (r *renderer) write(s string) {
	r.flush()
	r.out.WriteString(s)
}

func (r *renderer) walk(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
	switch node := n.(type) {
	case *gmast.Text:
		if entering {
			r.text.Write(node.Segment.Value(r.src))
			switch {
			case node.HardLineBreak():
				r.write("\\\\\n")
			case node.SoftLineBreak():
				r.text.WriteByte('\n')
			}
		}
	case *gmast.String:
		if entering {
			r.text.Write(node.Value)
		}
	case *gmast.Paragraph:
		if !entering {
			r.write("\n\n")
		}
	case *gmast.TextBlock:
		if !entering {
			r.flush()
		}
	case *gmast.Heading:
		if entering {
			if node.Level <= 2 {
				r.write(`\subsection*{`)
			} else {
				r.write(`\paragraph{`)
			}
		} else {
			r.write("}\n\n")
		}
	case *gmast.Emphasis:
		if entering {
			if node.Level >= 2 {
				r.write(`\textbf{`)
			} else {
				r.write(`\emph{`)
			}
		} else {
			r.write("}")
		}
	case *gmast.CodeSpan:
		if !entering {
			return gmast.WalkContinue, nil
		}
		r.write(`\texttt{` + Escape(childText(node, r.src)) + `}`)
		return gmast.WalkSkipChildren, nil
	case *gmast.Link:
		if entering {
			r.write(`\href{` + escapeTarget(string(node.Destination)) + `}{`)
			r.inLink++
		} else {
			r.flush()
			r.inLink--
			r.out.WriteString("}")
		}
	case *gmast.AutoLink:
		if !entering {
			return gmast.WalkContinue, nil
		}
		r.flush()
		url := string(node.URL(r.src))
		if node.AutoLinkType == gmast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		r.href(url, string(node.Label(r.src)))
		return gmast.WalkSkipChildren, nil
	case *gmast.List:
		env := "itemize"
		if node.IsOrdered() {
			env = "enumerate"
		}
		if entering {
			r.write(`\begin{` + env + "}\n")
		} else {
			r.write(`\end{` + env + "}\n\n")
		}
	case *gmast.ListItem:
		if entering {
			r.write(`\item `)
		} else {
			r.write("\n")
		}
	case *gmast.FencedCodeBlock, *gmast.CodeBlock:
		if !entering {
			return gmast.WalkContinue, nil
		}
		r.write("\\begin{verbatim}\n" + lines(n, r.src) + "\\end{verbatim}\n\n")
		return gmast.WalkSkipChildren, nil
	case *gmast.Blockquote:
		if entering {
			r.write("\\begin{quote}\n")
		} else {
			r.write("\\end{quote}\n\n")
		}
	case *gmast.ThematicBreak:
		if entering {
			r.write("\\medskip\n\n")
		}
	case *gmast.HTMLBlock, *gmast.RawHTML, *gmast.Image:
		return gmast.WalkSkipChildren, nil
	}
	return gmast.WalkContinue, nil
}

func childText(n gmast.Node, src []byte) string {
	var b bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}
	return b.String()
}

func lines(n gmast.Node, src []byte) string {
	var b bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// tidy collapses runs of blank lines and ends the output with one newline.
func tidy(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}
