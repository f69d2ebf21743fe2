package websearch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/llm"
	"golang.org/x/net/html"
)

// parseTextResults extracts organic results from a DuckDuckGo HTML page.
// Ads (links through duckduckgo.com/y.js) are skipped.
func parseTextResults(page []byte) ([]Result, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("parse results page: %w", err))
	}

	var (
		results []Result
		current *Result
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				href := resolveHref(attr(n, "href"))
				if href == "" {
					current = nil
				} else {
					results = append(results, Result{Title: nodeText(n), URL: href})
					current = &results[len(results)-1]
				}
				return
			case hasClass(n, "result__snippet"):
				if current != nil && current.Body == "" {
					current.Body = nodeText(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results, nil
}

// resolveHref unwraps DuckDuckGo redirect links. Ad links resolve to "".
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		if u.Path == "/y.js" {
			return ""
		}
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText returns the whitespace-collapsed text content of n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// textOf strips markup from an HTML fragment such as a news excerpt.
func textOf(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
