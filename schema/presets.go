package schema

import (
	"fmt"
	"sort"
)

// Nutrition is the fast-food nutrition facts table: one row per menu item.
func Nutrition() Config {
	return Config{
		Name:        "fastfood",
		Description: "Fast food menu items with nutrition facts",
		Columns: []ColumnMeta{
			String("restaurant"),
			String("item"),
			Integer("calories"),
			Integer("cal_fat"),
			Float("total_fat"),
			Float("sat_fat"),
			Float("trans_fat"),
			Float("cholesterol"),
			Float("sodium"),
			Float("total_carb"),
			withOptional(Float("fiber")),
			Float("sugar"),
			Float("protein"),
		},
	}
}

// Catalog is the streaming title catalog: one row per movie or show.
func Catalog() Config {
	return Config{
		Name:        "netflix",
		Description: "Streaming catalog titles",
		Columns: []ColumnMeta{
			String("show_id"),
			String("type"),
			String("title"),
			withOptional(String("director")),
			Multi("country", ","),
			withOptional(String("date_added")),
			Integer("release_year"),
			String("rating"),
			String("duration"),
			Multi("listed_in", ","),
		},
	}
}

func withOptional(c ColumnMeta) ColumnMeta {
	c.Optional = true
	return c
}

var presets = map[string]func() Config{
	"fastfood":  Nutrition,
	"nutrition": Nutrition,
	"netflix":   Catalog,
	"catalog":   Catalog,
}

// Preset returns a built-in schema by name.
func Preset(name string) (Config, error) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown schema preset %q (known: %v)", name, PresetNames())
	}
	return fn(), nil
}

// PresetNames lists the built-in schema names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
