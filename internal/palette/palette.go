// Package palette maps markets and product categories to chart colors.
// The defaults can be overridden from a YAML file so the presentation layer
// owns styling without touching the aggregation code.
package palette

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFallback = "#7f7f7f"

type Palette struct {
	Markets    map[string]string `yaml:"markets"`
	Categories map[string]string `yaml:"categories"`
	Fallback   string            `yaml:"fallback"`
}

func (p Palette) Market(name string) string {
	return p.lookup(p.Markets, name)
}

func (p Palette) Category(name string) string {
	return p.lookup(p.Categories, name)
}

func (p Palette) lookup(table map[string]string, key string) string {
	if c, ok := table[strings.TrimSpace(key)]; ok && c != "" {
		return c
	}
	if p.Fallback != "" {
		return p.Fallback
	}
	return DefaultFallback
}

// Merge returns a copy of p with every entry of override applied on top.
func (p Palette) Merge(override Palette) Palette {
	out := Palette{
		Markets:    maps.Clone(p.Markets),
		Categories: maps.Clone(p.Categories),
		Fallback:   p.Fallback,
	}
	if out.Markets == nil {
		out.Markets = make(map[string]string, len(override.Markets))
	}
	if out.Categories == nil {
		out.Categories = make(map[string]string, len(override.Categories))
	}
	maps.Copy(out.Markets, override.Markets)
	maps.Copy(out.Categories, override.Categories)
	if override.Fallback != "" {
		out.Fallback = override.Fallback
	}
	return out
}

// LoadFile reads a YAML override and merges it over Default.
func LoadFile(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, fmt.Errorf("read palette: %w", err)
	}

	var override Palette
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Palette{}, fmt.Errorf("parse palette %s: %w", path, err)
	}

	return Default().Merge(override), nil
}

// Default returns a fresh copy of the built-in colors.
func Default() Palette {
	return Palette{
		Markets:    maps.Clone(marketColors),
		Categories: maps.Clone(categoryColors),
		Fallback:   DefaultFallback,
	}
}

var marketColors = map[string]string{
	"Latin America": "#3366CC",
	"LATAM":         "#3366CC",
	"Europe":        "#DC3912",
	"Pacific Asia":  "#FF9900",
	"USCA":          "#109618",
	"Africa":        "#990099",
}

// Keys are the trimmed dataset names; inner spacing is kept.
var categoryColors = map[string]string{
	"Camping & Hiking":     "#1f77b4",
	"Water Sports":         "#ff7f0e",
	"Women's Apparel":      "#2ca02c",
	"Men's Footwear":       "#d62728",
	"Indoor/Outdoor Games": "#9467bd",
	"Accessories":          "#8c564b",
	"Cleats":               "#e377c2",
	"Trade-In":             "#7f7f7f",
	"Cardio Equipment":     "#bcbd22",
	"Shop By Sport":        "#17becf",
	"Hockey":               "#ff5733",
	"Electronics":          "#e74c3c",
	"Fishing":              "#3498db",
	"Golf Balls":           "#9b59b6",
	"Lacrosse":             "#e67e22",
	"Baseball & Softball":  "#34495e",
	"Golf Gloves":          "#f1c40f",
	"Girls' Apparel":       "#2ecc71",
	"Fitness Accessories":  "#1abc9c",
	"Hunting & Shooting":   "#95a5a6",
	"Tennis & Racquet":     "#2c3e50",
	"Golf Shoes":           "#bdc3c7",
	"Golf Apparel":         "#d35400",
	"Boxing & MMA":         "#7f8c8d",
	"Men's Golf Clubs":     "#2980b9",
	"Kids' Golf Clubs":     "#16a085",
	"Soccer":               "#c0392b",
	"Women's Golf Clubs":   "#f39c12",
	"Golf Bags & Carts":    "#27ae60",
	"Strength Training":    "#e67e22",
	"As Seen on  TV!":      "#8e44ad",
	"Basketball":           "#f39c12",
	"Books":                "#1abc9c",
	"Baby":                 "#95a5a6",
	"CDs":                  "#d35400",
	"Cameras":              "#bdc3c7",
	"Children's Clothing":  "#9b59b6",
	"Computers":            "#7f8c8d",
	"Consumer Electronics": "#2c3e50",
	"Crafts":               "#27ae60",
	"DVDs":                 "#f1c40f",
	"Garden":               "#17becf",
	"Health and Beauty":    "#bcbd22",
	"Men's Clothing":       "#e74c3c",
	"Music":                "#8c564b",
	"Pet Supplies":         "#2ecc71",
	"Sporting Goods":       "#7f7f7f",
	"Toys":                 "#d62728",
	"Video Games":          "#9467bd",
	"Women's Clothing":     "#3498db",
}
