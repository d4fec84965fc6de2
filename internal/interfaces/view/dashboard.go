package view

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// DashboardPage - данные страницы heatmap
type DashboardPage struct {
	Project   string
	Stage     string
	Service   string
	Limit     int
	Canonical bool
	HasScope  bool
	Error     string
}

// Query возвращает query string текущей страницы (для ссылок на PNG/SVG и WebSocket)
func (p DashboardPage) Query() string {
	q := url.Values{}
	q.Set("project", p.Project)
	q.Set("stage", p.Stage)
	q.Set("service", p.Service)
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	q.Set("canonical", strconv.FormatBool(p.Canonical))
	return q.Encode()
}

// Dashboard рендерит страницу; heatmap может быть nil (сервис не выбран или ошибка)
func Dashboard(page DashboardPage, heatmap templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>Evaluation heatmap</title>`+
			`<link rel="stylesheet" href="/static/css/style.css"></head><body>`); err != nil {
			return err
		}

		if err := scopeForm(page).Render(ctx, w); err != nil {
			return err
		}

		if page.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="error">%s</p>`, templ.EscapeString(page.Error)); err != nil {
				return err
			}
		}

		if page.HasScope && heatmap != nil {
			if _, err := fmt.Fprintf(w,
				`<section id="heatmap" data-query="%s"><h2>%s / %s / %s</h2>`,
				templ.EscapeString(page.Query()),
				templ.EscapeString(page.Project),
				templ.EscapeString(page.Stage),
				templ.EscapeString(page.Service),
			); err != nil {
				return err
			}
			if err := heatmap.Render(ctx, w); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w,
				`<p class="downloads"><a href="/api/v1/evaluations/heatmap.png?%[1]s">PNG</a> <a href="/api/v1/evaluations/heatmap.svg?%[1]s">SVG</a> <a href="/api/v1/evaluations/grid?%[1]s">JSON</a></p></section>`,
				templ.EscapeString(page.Query()),
			); err != nil {
				return err
			}
		} else if !page.HasScope {
			if _, err := io.WriteString(w, `<p class="hint">Select a project, stage and service to show its evaluations.</p>`); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `<script src="/static/js/heatmap.js"></script><script src="/static/js/websocket.js"></script></body></html>`)
		return err
	})
}

func scopeForm(page DashboardPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		checked := ""
		if page.Canonical {
			checked = " checked"
		}
		_, err := fmt.Fprintf(w,
			`<form class="scope" method="get" action="/">`+
				`<input name="project" placeholder="project" value="%s">`+
				`<input name="stage" placeholder="stage" value="%s">`+
				`<input name="service" placeholder="service" value="%s">`+
				`<label><input type="checkbox" name="canonical" value="true"%s> canonical rows</label>`+
				`<button type="submit">Show</button></form>`,
			templ.EscapeString(page.Project),
			templ.EscapeString(page.Stage),
			templ.EscapeString(page.Service),
			checked,
		)
		return err
	})
}
