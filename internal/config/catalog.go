package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Category maps a search keyword (and its aliases) to the regular expression
// a venue's category field must match.
type Category struct {
	Keyword string   `yaml:"keyword" validate:"required"`
	Aliases []string `yaml:"aliases"`
	Pattern string   `yaml:"pattern" validate:"required"`
}

// Catalog holds the static lookups the search depends on.
type Catalog struct {
	CircularLines []string   `yaml:"circular_lines"`
	Categories    []Category `yaml:"categories" validate:"required,min=1,dive"`
}

// DefaultCatalog returns the built-in categories. It adds no circular lines;
// those default through Config.CircularLines.
func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []Category{
			{
				Keyword: "ラーメン",
				Aliases: []string{"ramen", "らーめん"},
				Pattern: `ラーメン|らーめん|油そば|坦々麺|タンタン|たんたん|拉麺`,
			},
			{
				Keyword: "カフェ",
				Aliases: []string{"cafe", "coffee"},
				Pattern: `カフェ|喫茶店|コーヒー`,
			},
		},
	}
}

// LoadCatalog reads and validates a YAML catalog file. An empty path returns
// the defaults. CircularLines holds only the lines the file lists.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	v := validator.New()
	if err := v.Struct(cat); err != nil {
		return Catalog{}, fmt.Errorf("validate catalog %s: %w", path, err)
	}
	return cat, nil
}
