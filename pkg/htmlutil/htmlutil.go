package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
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

// CleanText removes non-printable characters, trims and collapses inner whitespace.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\t", " ")
	text = removeNonPrintable(text)
	text = strings.Trim(text, " ")
	return innerWhitespace.ReplaceAllString(text, " ")
}

// Text returns the cleaned text of the first node in the selection.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return CleanText(GetText(sel.Nodes[0]))
}

// HasClassTokens reports if the body element carries every class token given.
func HasClassTokens(doc *goquery.Document, tokens ...string) bool {
	body := doc.Find("body")
	for _, token := range tokens {
		if !body.HasClass(token) {
			return false
		}
	}
	return true
}

// ScriptContaining returns the text of the first script element containing `marker`.
func ScriptContaining(doc *goquery.Document, marker string) (string, bool) {
	for _, script := range doc.Find("script").Nodes {
		text := GetText(script)
		if strings.Contains(text, marker) {
			return text, true
		}
	}
	return "", false
}
