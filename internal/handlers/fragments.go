package handlers

import (
	"html/template"
	"strings"

	"dataco-dashboard/internal/models"
)

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`
{{define "kpis"}}<div id="kpi-cards" class="kpi-grid">
{{range .}}<div class="kpi-card{{if not .Available}} kpi-missing{{end}}">
<div class="kpi-title">{{.Name}}</div>
<div class="kpi-value">{{.Display}}</div>
</div>
{{end}}</div>{{end}}

{{define "ranking"}}<table class="modern-table">
<thead><tr><th>#</th><th>{{.Label}}</th><th>Value</th></tr></thead>
<tbody>
{{range $i, $row := .Rows}}<tr>
<td>{{inc $i}}</td>
<td><span class="swatch" style="background: {{$row.Color}}"></span>{{$row.Group}}{{if $row.Parent}} <small>{{$row.Parent}}</small>{{end}}</td>
<td><strong>{{$row.Label}}</strong></td>
</tr>
{{else}}<tr><td colspan="3" class="empty">No data</td></tr>
{{end}}</tbody>
</table>{{end}}

{{define "rankings"}}<div id="rankings" class="ranking-grid">
{{range .}}<section>
<h3>{{.Title}}</h3>
{{template "ranking" .}}
</section>
{{end}}</div>{{end}}

{{define "otif"}}<div id="otif-table">
<table class="modern-table">
<thead><tr><th>Region</th><th>OTIF Rate</th><th>Orders</th></tr></thead>
<tbody>
{{range .}}<tr><td>{{.Scope}}</td><td>{{printf "%.2f" .Value}} %</td><td>{{.Rows}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "map"}}<iframe id="choropleth-map" src="{{.}}" title="Sales by country" loading="lazy"></iframe>{{end}}

{{define "error"}}<div id="dashboard-error" class="error-banner">{{.}}</div>{{end}}
`))

type rankingPanel struct {
	Title string
	Label string
	Rows  []models.RankingRow
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
