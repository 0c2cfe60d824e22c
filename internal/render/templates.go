package render

import (
	"html/template"
	"path/filepath"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const baseTemplate = `{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Title}}{{.Title}} | {{end}}{{.Site.Title}}</title>
<link rel="alternate" type="application/rss+xml" href="{{.Site.BaseURL}}index.xml" title="{{.Site.Title}}">
</head>
<body>
<header><a href="{{.Site.BaseURL}}">{{.Site.Title}}</a></header>
<main>{{template "main" .}}</main>
</body>
</html>
{{end}}`

const pageTemplate = `{{define "page"}}{{template "base" .}}{{end}}
{{define "main"}}{{if .Page}}<article>
<h1>{{.Page.Title}}</h1>
{{if .Page.Dated}}<time datetime="{{isoDate .Page.Date}}">{{humanDate .Page.Date}}</time>{{end}}
{{.Page.Content}}
{{with .Page.Tags}}<ul class="tags">{{range .}}<li><a href="{{$.Site.BaseURL}}tags/{{.Key}}/">{{.Name}}</a></li>{{end}}</ul>{{end}}
</article>{{end}}
{{if .Intro}}<section class="intro">{{.Intro}}</section>{{end}}
{{if .List}}<ul class="pages">{{range .List}}<li>
<a href="{{$.Site.BaseURL}}{{.URL}}">{{.Title}}</a>{{if .Dated}} <time datetime="{{isoDate .Date}}">{{humanDate .Date}}</time>{{end}}
{{with .Summary}}<p>{{.}}</p>{{end}}
</li>{{end}}</ul>{{end}}
{{if .Terms}}<ul class="terms">{{range .Terms}}<li><a href="{{$.Site.BaseURL}}{{.URL}}">{{.Name}}</a> ({{.Count}})</li>{{end}}</ul>{{end}}{{end}}`

func funcMap() template.FuncMap {
	return template.FuncMap{
		"isoDate":   func(t time.Time) string { return t.Format(time.RFC3339) },
		"humanDate": func(t time.Time) string { return t.Format("January 2, 2006") },
	}
}

// parseTemplates builds the built-in templates, then lets *.html files in
// layoutDir redefine any of them.
func parseTemplates(layoutDir string) (*template.Template, error) {
	t, err := template.New("pubgate").Funcs(funcMap()).Parse(baseTemplate)
	if err != nil {
		return nil, err
	}
	if t, err = t.Parse(pageTemplate); err != nil {
		return nil, err
	}
	if layoutDir == "" {
		return t, nil
	}
	matches, err := filepath.Glob(filepath.Join(layoutDir, "*.html"))
	if err != nil || len(matches) == 0 {
		return t, err
	}
	return t.ParseFiles(matches...)
}

// displayTitle title-cases a taxonomy term for headings.
func displayTitle(s string) string {
	return cases.Title(language.English).String(s)
}
