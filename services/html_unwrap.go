package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Some relays wrap the proxied payload in an HTML page
var (
	preSelector  = cascadia.MustCompile("pre")
	bodySelector = cascadia.MustCompile("body")
)

func looksLikeHTML(body []byte) bool {
	return len(body) > 0 && body[0] == '<'
}

// unwrapHTML extracts the text of the first <pre>, falling back to <body>
func unwrapHTML(body []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if pre := doc.FindMatcher(preSelector).First(); pre.Length() > 0 {
		return []byte(strings.TrimSpace(pre.Text())), nil
	}

	return []byte(strings.TrimSpace(doc.FindMatcher(bodySelector).Text())), nil
}
