package curator

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
)

const snippetRunes = 80

const markdownTemplate = `# {{.Title}}

> {{.Date}} | {{.Stats.Total}} items collected, {{.Stats.Scored}} scored, {{.Stats.Selected}} selected

## Overview
{{if .Stats.Platforms}}
**Platforms**
{{range $name, $count := .Stats.Platforms}}- {{$name}}: {{$count}}
{{end}}{{end}}{{if .Stats.Topics}}
**Topics**
{{range $name, $count := .Stats.Topics}}- {{$name}}: {{$count}}
{{end}}{{end}}
## Featured
{{range .Featured}}
### {{.Topic}}
{{range .Entries}}- {{template "entry" .}}
{{end}}{{end}}
## Hot
{{range $i, $e := .HeatTop}}{{inc $i}}. {{template "entry" $e}}
{{end}}
## Under the radar
{{range $i, $e := .Potential}}{{inc $i}}. {{template "entry" $e}}
{{end}}
---
*Generated by InfoFlow*
{{define "entry"}}{{if .Url}}[{{.Title}}]({{.Url}}){{else}}{{.Title}}{{end}} ({{.Platform}}, heat {{score .Heat}}, potential {{score .Potential}}){{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Date}} | {{.Stats.Total}} items collected, {{.Stats.Scored}} scored, {{.Stats.Selected}} selected</div>
<div class="stats">
<h2>Overview</h2>
<ul>
{{range $name, $count := .Stats.Platforms}}<li>{{$name}}: {{$count}}</li>
{{end}}</ul>
<ul>
{{range $name, $count := .Stats.Topics}}<li>{{$name}}: {{$count}}</li>
{{end}}</ul>
</div>
<h2>Featured</h2>
{{range .Featured}}<h3>{{.Topic}}</h3>
<ul>
{{range .Entries}}<li>{{template "entry" .}}</li>
{{end}}</ul>
{{end}}<div class="heat">
<h2>Hot</h2>
<ol>
{{range .HeatTop}}<li>{{template "entry" .}}</li>
{{end}}</ol>
</div>
<div class="potential">
<h2>Under the radar</h2>
<ol>
{{range .Potential}}<li>{{template "entry" .}}</li>
{{end}}</ol>
</div>
<div class="footer">Generated by InfoFlow</div>
</body>
</html>
{{define "entry"}}{{if .Url}}<a href="{{.Url}}">{{.Title}}</a>{{else}}{{.Title}}{{end}} <span class="score">{{.Platform}}, heat {{score .Heat}}, potential {{score .Potential}}</span>{{end}}`

var funcs = map[string]interface{}{
	"inc":   func(i int) int { return i + 1 },
	"score": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
}

var (
	markdown = template.Must(template.New("markdown").Funcs(funcs).Parse(markdownTemplate))
	html     = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(htmlTemplate))
)

type renderEntry struct {
	Id        string
	Title     string
	Url       string
	Platform  string
	Heat      float64
	Potential float64
}

type topicGroup struct {
	Topic   string
	Entries []renderEntry
}

type renderData struct {
	Title     string
	Date      string
	Stats     model.BriefStats
	Featured  []topicGroup
	HeatTop   []renderEntry
	Potential []renderEntry
}

func newRenderData(title string, stats model.BriefStats, buckets Buckets) renderData {
	data := renderData{Title: title, Date: stats.Date, Stats: stats}
	groups := map[string]int{}
	for _, c := range buckets.Featured {
		idx, ok := groups[c.Topic]
		if !ok {
			idx = len(data.Featured)
			groups[c.Topic] = idx
			data.Featured = append(data.Featured, topicGroup{Topic: c.Topic})
		}
		data.Featured[idx].Entries = append(data.Featured[idx].Entries, entryOf(c))
	}
	for _, c := range buckets.HeatTop {
		data.HeatTop = append(data.HeatTop, entryOf(c))
	}
	for _, c := range buckets.Potential {
		data.Potential = append(data.Potential, entryOf(c))
	}
	return data
}

func entryOf(c *Candidate) renderEntry {
	return renderEntry{
		Id:        c.Item.Id,
		Title:     DisplayTitle(c.Item),
		Url:       c.Item.Url,
		Platform:  c.Item.Platform,
		Heat:      c.Heat,
		Potential: c.Potential,
	}
}

// DisplayTitle is the item title, or the start of its body when untitled.
func DisplayTitle(item *model.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	body := strings.Join(strings.Fields(item.Body), " ")
	if utf8.RuneCountInString(body) <= snippetRunes {
		return body
	}
	return string([]rune(body)[:snippetRunes]) + "..."
}

// Render produces the markdown and html bodies of a brief.
func Render(title string, stats model.BriefStats, buckets Buckets) (string, string, error) {
	data := newRenderData(title, stats, buckets)
	var md, page bytes.Buffer
	if err := markdown.Execute(&md, data); err != nil {
		return "", "", errors.Wrap(err, "fail to render markdown brief")
	}
	if err := html.Execute(&page, data); err != nil {
		return "", "", errors.Wrap(err, "fail to render html brief")
	}
	return md.String(), page.String(), nil
}
