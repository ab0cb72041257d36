package templates

import (
	"context"
	"strings"
	"testing"
)

func TestDashboardRender(t *testing.T) {
	var b strings.Builder
	err := Dashboard(Page{
		Years:   []int{2015, 2016, 2017},
		Regions: []string{"All Regions", "Oceania"},
		Year:    2016,
		Region:  "Oceania",
	}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	html := b.String()
	for _, want := range []string{
		"<title>DataCo Supply Chain Dashboard</title>",
		`<option value="2016" selected>`,
		`<option value="Oceania" selected>`,
		`id="kpi-cards"`,
		`id="rankings"`,
		`id="otif-table"`,
		`id="choropleth-map"`,
		`id="dashboard-error"`,
		`data-on-load="@get('/sse/dashboard')"`,
		`<select id="region-filter" data-bind-region data-on-change="@get('/sse/dashboard')">`,
		"&#34;year&#34;:2016",
		"&#34;charts&#34;:{}",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, `<option value="2017" selected>`) {
		t.Error("only the current year should be selected")
	}
}

func TestRegionSelectRender(t *testing.T) {
	tests := []struct {
		name     string
		regions  []string
		selected string
		want     []string
		notWant  []string
	}{
		{
			name:     "marks selected",
			regions:  []string{"All Regions", "LATAM", "Oceania"},
			selected: "LATAM",
			want:     []string{`<option value="LATAM" selected>LATAM</option>`, `<option value="Oceania">`},
			notWant:  []string{`<option value="All Regions" selected>`},
		},
		{
			name:     "escapes names",
			regions:  []string{"All Regions", "Q&A <North>"},
			selected: "All Regions",
			want:     []string{`<option value="Q&amp;A &lt;North&gt;">Q&amp;A &lt;North&gt;</option>`},
			notWant:  []string{"<North>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := RegionSelect(tt.regions, tt.selected).Render(context.Background(), &b); err != nil {
				t.Fatalf("Render() failed: %v", err)
			}
			html := b.String()
			if !strings.HasPrefix(html, `<select id="region-filter" data-bind-region data-on-change="@get('/sse/dashboard')">`) {
				t.Errorf("select should keep its binding and change handler, got %q", html)
			}
			for _, want := range tt.want {
				if !strings.Contains(html, want) {
					t.Errorf("select missing %q in %q", want, html)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(html, bad) {
					t.Errorf("select should not contain %q", bad)
				}
			}
		})
	}
}

func TestDashboardRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	if err := Dashboard(Page{}).Render(ctx, &b); err == nil {
		t.Error("Render() should fail on a cancelled context")
	}
	if b.Len() != 0 {
		t.Error("cancelled render should write nothing")
	}
}
