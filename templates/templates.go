// Package templates embeds the HTML pages and static assets.
package templates

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed *.html
var pages embed.FS

//go:embed static
var static embed.FS

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Parse loads every page. pictureURL turns a stored picture key into a URL.
func Parse(pictureURL func(string) string) (*template.Template, error) {
	funcs := template.FuncMap{
		"pictureURL": pictureURL,
		"lines": func(s string) []string {
			return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
		},
		"hasID": func(ids map[uint]bool, id uint) bool {
			return ids[id]
		},
	}
	return template.New("").Funcs(funcs).ParseFS(pages, "*.html")
}
