package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tracer = otel.Tracer("portalcrawl/lib/htmlutil")

// StripTags removes all markup from an html blob, keeping only text content
// with entities decoded. The contents of script and style elements and
// comments are dropped.
func StripTags(blob string) string {
	var out strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(blob))
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader produces
			return out.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isRawText(name) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isRawText(name) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			out.WriteString(html.UnescapeString(string(tokenizer.Raw())))
		}
	}
}

func isRawText(name []byte) bool {
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// ParseFragment parses outerHTML in the context of a parent element named
// parentTag, this matters for elements like <tr> which would otherwise be
// dropped by the parser.
func ParseFragment(outerHTML, parentTag string) (*goquery.Selection, error) {
	if parentTag == "" {
		parentTag = "div"
	}
	parentTag = strings.ToLower(parentTag)
	parent := &html.Node{
		Type:     html.ElementNode,
		Data:     parentTag,
		DataAtom: atom.Lookup([]byte(parentTag)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(outerHTML), parent)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(parent).Children(), nil
}

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && isRawText([]byte(node.Data)) {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Footer: true, atom.Form: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

// RenderText renders the text of node roughly the way a browser's innerText
// would, block elements start on a new line. Lines are trimmed and runs of
// empty lines collapse into one.
func RenderText(node *html.Node) string {
	var buffer bytes.Buffer
	renderTextRecursive(node, &buffer)

	lines := strings.Split(buffer.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = innerWhitespace.ReplaceAllString(strings.TrimSpace(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func renderTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if isRawText([]byte(node.Data)) {
			return
		}
		if node.DataAtom == atom.Td || node.DataAtom == atom.Th {
			buffer.WriteString(" ")
		}
	}

	block := node.Type == html.ElementNode && blockElements[node.DataAtom]
	if block {
		buffer.WriteString("\n")
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderTextRecursive(child, buffer)
	}
	if block {
		buffer.WriteString("\n")
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// GetAnchors returns the name and href of every anchor in sel, anchors with
// an unparseable href are skipped.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := strings.Join(strings.Fields(GetText(n)), " ")
		name = removeNonPrintable(name)

		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}
