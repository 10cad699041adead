// Package htmlimport converts a host-supplied HTML fragment into the
// (text, block_kind) pairs package editor's insert_html command turns into
// paragraphs. It walks the DOM with golang.org/x/net/html exactly as the
// teacher's html package does for InnerText/TextFromHTML, but classifies
// block-level elements into document.BlockKind instead of flattening
// everything into one run of text.
package htmlimport

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/document"
)

func tracer() tracing.Trace {
	return tracing.Select("htmlimport")
}

// Block is one block-level unit extracted from a fragment: its flattened
// text content and the paragraph classification it should become.
type Block struct {
	Text string
	Kind document.BlockKind
}

// headingLevel maps each heading tag to its level. Parse starts a new Block
// at p, div, li and h1-h6; every other element is walked for text or nested
// block content.
var headingLevel = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// Parse walks fragment's DOM and returns one Block per block-level element
// (p, div, li, h1-h6) encountered, in document order. Inline elements
// contribute their text to the enclosing block; a nested block flushes
// whatever text had accumulated as its own Block first.
func Parse(fragment string) ([]Block, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), nil)
	if err != nil {
		tracer().Errorf("parse fragment: %v", err)
		return nil, err
	}

	var blocks []Block
	var buf strings.Builder
	curKind := document.BlockKind{Tag: document.Paragraph}
	listDepth := 0

	flush := func() {
		if buf.Len() > 0 {
			blocks = append(blocks, Block{Text: buf.String(), Kind: curKind})
			buf.Reset()
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return

		case html.ElementNode:
			switch n.Data {
			case "p", "div":
				flush()
				prevKind := curKind
				curKind = document.BlockKind{Tag: document.Paragraph}
				walkChildren(n, walk)
				flush()
				curKind = prevKind
				return

			case "h1", "h2", "h3", "h4", "h5", "h6":
				flush()
				prevKind := curKind
				curKind = document.BlockKind{Tag: document.Heading, Level: headingLevel[n.Data]}
				walkChildren(n, walk)
				flush()
				curKind = prevKind
				return

			case "li":
				flush()
				prevKind := curKind
				curKind = document.BlockKind{Tag: document.ListItem, Marker: "•", Indent: listDepth}
				walkChildren(n, walk)
				flush()
				curKind = prevKind
				return

			case "ul", "ol":
				listDepth++
				walkChildren(n, walk)
				listDepth--
				return
			}
		}
		walkChildren(n, walk)
	}

	for _, n := range nodes {
		walk(n)
	}
	flush()
	return blocks, nil
}

func walkChildren(n *html.Node, walk func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
}
