package normalize

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/akhdanfadh/urlkeep/internal/epoch"
)

// defaultNetscapeTitle names the folder for root-level links when the export
// has no <H1>.
const defaultNetscapeTitle = "Bookmarks"

// undatedNetscape is the ADD_DATE of a link with no date of its own and no
// dated enclosing folder: the Unix epoch.
const undatedNetscape = "0"

// ParseNetscape reads a NETSCAPE-Bookmark-file-1 HTML export, the format
// behind every browser's "Export bookmarks to HTML".
//
//	<H1>Bookmarks Menu</H1>
//	<DL><p>
//	    <DT><H3 ADD_DATE="...">Folder</H3>
//	    <DL><p>
//	        <DT><A HREF="https://..." ADD_DATE="...">Title</A>
//	    </DL><p>
//	</DL>
//
// Links outside any folder are gathered into a root folder named after the
// <H1> heading. ADD_DATE is optional in the format: an undated link takes its
// LAST_MODIFIED, then the ADD_DATE of the nearest dated <H3> above it, then
// the Unix epoch.
func ParseNetscape(r io.Reader) (*BookmarkRoots, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	list := findElement(doc, "dl")
	if list == nil {
		return nil, &SchemaError{Reason: "no <DL> bookmark list"}
	}

	title := defaultNetscapeTitle
	if h1 := findElement(doc, "h1"); h1 != nil {
		if t := textContent(h1); t != "" {
			title = t
		}
	}

	out := &BookmarkRoots{Clock: epoch.FromUnix}
	loose := &Folder{Name: title}
	for _, entry := range parseList(list, undatedNetscape) {
		switch e := entry.(type) {
		case *Folder:
			out.Roots = append(out.Roots, e)
		case *Link:
			loose.Children = append(loose.Children, e)
		}
	}
	if len(loose.Children) > 0 {
		out.Roots = append([]*Folder{loose}, out.Roots...)
	}
	return out, nil
}

// parseList converts the <DT> items of a <DL> into entries. inherited is the
// date given to links that carry none.
func parseList(dl *html.Node, inherited string) []Entry {
	var entries []Entry
	for dt := dl.FirstChild; dt != nil; dt = dt.NextSibling {
		if !isElement(dt, "dt") {
			continue
		}
		for c := dt.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, "h3") {
				folder := &Folder{Name: textContent(c)}
				if sub := nestedList(dt, c); sub != nil {
					folder.Children = parseList(sub, dateAttr(c, inherited, "add_date"))
				}
				entries = append(entries, folder)
				break
			}
			if isElement(c, "a") {
				entries = append(entries, &Link{
					Title:     textContent(c),
					URL:       attr(c, "href"),
					DateAdded: dateAttr(c, inherited, "add_date", "last_modified"),
				})
				break
			}
		}
	}
	return entries
}

// dateAttr returns the first non-empty attribute of keys, or fallback.
func dateAttr(n *html.Node, fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := lookupAttr(n, key); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallback
}

// nestedList finds the <DL> of a folder: after the heading inside the <DT>,
// or right after the <DT> for exporters whose markup the parser reshapes.
func nestedList(dt, heading *html.Node) *html.Node {
	for c := heading.NextSibling; c != nil; c = c.NextSibling {
		if isElement(c, "dl") {
			return c
		}
	}
	for c := dt.NextSibling; c != nil; c = c.NextSibling {
		if isElement(c, "dt") {
			return nil
		}
		if isElement(c, "dl") {
			return c
		}
	}
	return nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func findElement(n *html.Node, tag string) *html.Node {
	if isElement(n, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}
