package page

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

var htmlMinifier = func() *minify.M {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepQuotes:       true,
		KeepEndTags:      true,
		KeepDocumentTags: true,
	})
	return m
}()

type listEntry struct {
	size int64
	hash string
	dir  bool
}

// ListFolder synthesizes an HTML index of the snapshot entries directly
// under the given folder. requestPath is the full request path (used for
// the heading and links), rel the folder relative to the page root.
// Returns false when the folder holds no entries.
func (p *Page) ListFolder(requestPath, rel string) ([]byte, bool) {
	snap := p.Snapshot()
	rel = normalizePath(rel)

	entries := make(map[string]listEntry)
	for key, f := range snap.files {
		stripped, ok := strings.CutPrefix(key, rel)
		if !ok || stripped == "" {
			continue
		}
		if child, _, nested := strings.Cut(stripped, "/"); nested {
			entries[child+"/"] = listEntry{dir: true}
		} else {
			entries[stripped] = listEntry{size: f.Size, hash: f.Hash}
		}
	}
	if len(entries) == 0 {
		return nil, false
	}
	if rel != "" {
		entries["../"] = listEntry{dir: true}
	}

	links := make([]string, 0, len(entries))
	for link := range entries {
		links = append(links, link)
	}
	sort.Strings(links)

	var b bytes.Buffer
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Contents of %[1]s</title>
<link rel="icon" href="data:image/png;base64,iVBORw0KGgo=">
<style>
body { font-family: monospace; }
th, td { text-align: left; padding-right: 20px; }
</style>
</head>
<body>
<h1>Contents of %[1]s</h1>
<table>
<tr><th>&nbsp;</th><th>Item</th><th>Size</th><th>Hash</th></tr>
`, html.EscapeString(requestPath))

	for _, link := range links {
		entry := entries[link]
		symbol, size, hash := "&#128196;", fmt.Sprintf("%d", entry.size), entry.hash
		if entry.dir {
			symbol, size, hash = "&#128193;", "&nbsp;", "&nbsp;"
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td><a href=\"%s\">%s</a></td><td>%s</td><td>%s</td></tr>\n",
			symbol, html.EscapeString(escapePath(requestPath+link)), html.EscapeString(link), size, hash)
	}
	b.WriteString("</table></body></html>")

	minified, err := htmlMinifier.Bytes("text/html", b.Bytes())
	if err != nil {
		return b.Bytes(), true
	}
	return minified, true
}

// escapePath percent-encodes every path segment so names containing
// spaces or reserved characters still produce working links.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
