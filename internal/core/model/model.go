// Package model defines core domain types shared across the service.
package model

import "strings"

// Category describes one feature layer and how its features are summarised.
type Category struct {
	Name               string
	Label              string
	NameField          string
	FallbackNameFields []string
	SubtypeField       string

	// loader wiring, ignored by the evaluator
	Endpoint string
	Table    string
}

// NameFields returns the display-name lookup order.
func (c Category) NameFields() []string {
	out := make([]string, 0, 1+len(c.FallbackNameFields))
	if c.NameField != "" {
		out = append(out, c.NameField)
	}
	for _, f := range c.FallbackNameFields {
		if f != "" && f != c.NameField {
			out = append(out, f)
		}
	}
	return out
}

type Categories []Category

func (cs Categories) Lookup(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

func (cs Categories) Names() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// Subset keeps the given names in declaration order; unknown names are ignored.
func (cs Categories) Subset(names []string) Categories {
	if len(names) == 0 {
		return cs
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = struct{}{}
	}
	out := make(Categories, 0, len(names))
	for _, c := range cs {
		if _, ok := want[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// DefaultCategories is the layer set of the heat-planning map. Every layer
// is labelled by "name", falling back to "gen".
func DefaultCategories() Categories {
	return Categories{
		{
			Name:               "kommunen",
			Label:              "Kommunen",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			Endpoint:           "/get_kommunen",
			Table:              "Kommunen",
		},
		{
			Name:               "energieanlagen",
			Label:              "Energieanlagen",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			SubtypeField:       "anlage",
			Endpoint:           "/get_energieanlagen",
			Table:              "Energieanlagen",
		},
		{
			Name:               "waermenetze",
			Label:              "Wärmenetze",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			SubtypeField:       "art",
			Endpoint:           "/get_waermenetze",
			Table:              "Waermenetze",
		},
		{
			Name:               "erzeugungspotenziale",
			Label:              "Erzeugungspotenziale",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			SubtypeField:       "art",
			Endpoint:           "/get_erzeugungspotenziale",
			Table:              "Erzeugungspotenziale",
		},
		{
			Name:               "eignungsgebiete",
			Label:              "Eignungsgebiete",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			SubtypeField:       "art",
			Endpoint:           "/get_eignungsgebiete",
			Table:              "Eignungsgebiete",
		},
		{
			Name:               "features",
			Label:              "Features",
			NameField:          "name",
			FallbackNameFields: []string{"gen"},
			Endpoint:           "/get_data",
			Table:              "features",
		},
	}
}
