// Package templates renders the dashboard page shell. Every panel inside it
// is filled by the /sse/dashboard stream once the page loads.
//
//go:generate templ generate
package templates

import "github.com/a-h/templ"

const defaultTitle = "DataCo Supply Chain Dashboard"

// Page is the initial selection and selector options.
type Page struct {
	Title   string
	Years   []int
	Regions []string
	Year    int
	Region  string
}

func (p Page) title() string {
	if p.Title == "" {
		return defaultTitle
	}
	return p.Title
}

// signals seeds the datastar store; charts stays empty until the first patch.
func (p Page) signals() (string, error) {
	return templ.JSONString(map[string]any{
		"year":   p.Year,
		"region": p.Region,
		"charts": map[string]any{},
	})
}
