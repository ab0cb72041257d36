package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dataco-dashboard/internal/models"
)

func sseRequest(target, signals string) *http.Request {
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, sseRequest("/sse/dashboard", `{"year":"2017","region":"Western Europe"}`))

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"event: datastar-patch-elements",
		"event: datastar-patch-signals",
		`id="kpi-cards"`,
		"80.00 %",
		`id="rankings"`,
		"Top Categories in Western Europe",
		`id="otif-table"`,
		`id="choropleth-map"`,
		"https://maps.test/2017",
		`id="dashboard-error"`,
		"dailySales",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q", want)
		}
	}
}

func TestSSEHandlers_HandleDashboard_Defaults(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, sseRequest("/sse/dashboard", ""))

	body := w.Body.String()
	if !strings.Contains(body, "60.00 %") {
		t.Error("default selection should show the all-regions OTIF rate")
	}
	if !strings.Contains(body, "Top Categories in All Regions") {
		t.Error("default selection should scope categories to All Regions")
	}
}

func TestSSEHandlers_HandleDashboard_Errors(t *testing.T) {
	tests := []struct {
		name    string
		signals string
		want    string
	}{
		{"year out of range", `{"year":2030}`, "year must be between 2015 and 2017"},
		{"unknown region", `{"year":2017,"region":"Atlantis"}`, "unknown region"},
		{"malformed signals", `{"year":`, "Invalid signals"},
		{"year not numeric", `{"year":"soon"}`, "Invalid signals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSSEHandlers(createTestAnalytics(), testLogger())
			w := httptest.NewRecorder()
			h.HandleDashboard(w, sseRequest("/sse/dashboard", tt.signals))

			body := w.Body.String()
			if !strings.Contains(body, `id="dashboard-error"`) {
				t.Fatalf("expected error banner, got %q", body)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("banner should mention %q, got %q", tt.want, body)
			}
			if strings.Contains(body, "kpi-cards") {
				t.Error("failed request should not patch KPI cards")
			}
		})
	}
}

func TestSSEHandlers_HandleRegions(t *testing.T) {
	tests := []struct {
		name         string
		signals      string
		wantSelected string
		wantSignal   bool
	}{
		{"keeps selected region", `{"year":2016,"region":"South America"}`, "South America", false},
		{"region absent in year", `{"year":2016,"region":"Oceania"}`, "All Regions", true},
		{"no region", `{"year":2016}`, "All Regions", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSSEHandlers(createTestAnalytics(), testLogger())
			w := httptest.NewRecorder()
			h.HandleRegions(w, sseRequest("/sse/regions", tt.signals))

			body := w.Body.String()
			if !strings.Contains(body, `id="region-filter"`) {
				t.Fatal("response should patch the region selector")
			}
			if !strings.Contains(body, `data-on-change="@get('/sse/dashboard')"`) {
				t.Error("patched region select should refresh the dashboard on change")
			}
			if !strings.Contains(body, `data-bind-region`) {
				t.Error("patched region select should stay bound to $region")
			}
			if !strings.Contains(body, `<option value="`+tt.wantSelected+`" selected>`) {
				t.Errorf("%s should be selected, got %q", tt.wantSelected, body)
			}
			if n := strings.Count(body, " selected>"); n != 1 {
				t.Errorf("selected options = %d, want 1", n)
			}
			if !strings.Contains(body, "South America") {
				t.Error("2016 regions should include South America")
			}
			if strings.Contains(body, `<option value="Oceania"`) {
				t.Error("2016 regions should not include Oceania")
			}

			patched := strings.Contains(body, "event: datastar-patch-signals")
			if patched != tt.wantSignal {
				t.Errorf("region signal patched = %v, want %v", patched, tt.wantSignal)
			}
			if tt.wantSignal && !strings.Contains(body, `"region":"All Regions"`) {
				t.Errorf("region signal should reset to All Regions, got %q", body)
			}
		})
	}
}

func TestSSEHandlers_HandleRegions_BadYear(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(), testLogger())
	w := httptest.NewRecorder()
	h.HandleRegions(w, sseRequest("/sse/regions", `{"year":1999}`))

	body := w.Body.String()
	if !strings.Contains(body, `id="dashboard-error"`) {
		t.Fatalf("expected error banner, got %q", body)
	}
	if strings.Contains(body, "region-filter") {
		t.Error("failed request should not patch the region selector")
	}
}

func TestYearSignal_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{`{"year":2016}`, 2016, false},
		{`{"year":"2015"}`, 2015, false},
		{`{"year":""}`, 0, false},
		{`{"year":null}`, 0, false},
		{`{"year":"next"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var sel selection
			err := json.Unmarshal([]byte(tt.input), &sel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && int(sel.Year) != tt.want {
				t.Errorf("Year = %d, want %d", sel.Year, tt.want)
			}
		})
	}
}

func TestRenderFragments(t *testing.T) {
	html, err := render("rankings", []rankingPanel{{Title: "Empty", Label: "Category"}})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}
	if !strings.Contains(html, "No data") {
		t.Error("empty ranking should render a placeholder row")
	}

	html, err = render("ranking", rankingPanel{
		Label: "Region",
		Rows: []models.RankingRow{
			{Group: "Western Europe", Parent: "Europe", Label: "$1.23M", Color: "#DC3912"},
		},
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}
	for _, want := range []string{"<td>1</td>", "Western Europe", "<small>Europe</small>", "$1.23M", "#DC3912"} {
		if !strings.Contains(html, want) {
			t.Errorf("ranking missing %q", want)
		}
	}

	html, err = render("kpis", []models.KPI{{Name: "OTIF Rate", Display: "N/A"}})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}
	if !strings.Contains(html, "kpi-missing") {
		t.Error("unavailable KPI should be marked")
	}
}

func BenchmarkSSEHandlers_HandleDashboard(b *testing.B) {
	h := NewSSEHandlers(createTestAnalytics(), testLogger())
	req := sseRequest("/sse/dashboard", `{"year":2017,"region":"All Regions"}`)

	for b.Loop() {
		w := httptest.NewRecorder()
		h.HandleDashboard(w, req)
	}
}
