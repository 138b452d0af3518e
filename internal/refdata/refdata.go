package refdata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"docintake/internal/services"
)

// SchemaV1 identifies the reference file format.
const SchemaV1 = "docintake.refdata.v1"

// FallbackCategory is used when no category keyword matches.
const FallbackCategory = "GENERAL"

//go:embed defaults.yaml
var defaultData []byte

// Category is one document category.
type Category struct {
	Code     string   `json:"code" yaml:"code"`
	Label    string   `json:"label" yaml:"label"`
	Folder   string   `json:"folder,omitempty" yaml:"folder,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Department is one organizational unit.
type Department struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Data is the full set of reference lists.
type Data struct {
	Schema      string       `json:"schema" yaml:"schema"`
	Categories  []Category   `json:"categories" yaml:"categories"`
	Departments []Department `json:"departments" yaml:"departments"`
}

// Default returns the embedded reference lists.
func Default() Data {
	data, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("embedded reference data invalid: %v", err))
	}
	return data
}

// Load reads reference lists from path, or returns the embedded defaults when
// path is empty.
func Load(path string) (Data, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Data{}, services.Wrap(services.ErrNotFound, "refdata", "load", "Reference file not found", err)
		}
		return Data{}, services.Wrap(services.ErrConfiguration, "refdata", "load", "Failed to read reference file", err)
	}
	data, err := Parse(raw)
	if err != nil {
		return Data{}, services.Wrap(services.ErrConfiguration, "refdata", "parse", "Reference file is invalid", err)
	}
	return data, nil
}

// Parse decodes and validates a YAML reference document.
func Parse(input []byte) (Data, error) {
	var data Data
	if err := yaml.Unmarshal(input, &data); err != nil {
		return Data{}, fmt.Errorf("decode reference data: %w", err)
	}
	data.normalize()
	if err := data.Validate(); err != nil {
		return Data{}, err
	}
	return data, nil
}

func (d *Data) normalize() {
	for i := range d.Categories {
		c := &d.Categories[i]
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		c.Label = strings.TrimSpace(c.Label)
		c.Folder = strings.Trim(strings.TrimSpace(c.Folder), "/")
		keywords := c.Keywords[:0]
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		c.Keywords = keywords
	}
	for i := range d.Departments {
		d.Departments[i].Code = strings.ToUpper(strings.TrimSpace(d.Departments[i].Code))
		d.Departments[i].Name = strings.TrimSpace(d.Departments[i].Name)
	}
}

// Validate checks schema, required fields, and uniqueness.
func (d Data) Validate() error {
	if strings.TrimSpace(d.Schema) != SchemaV1 {
		return fmt.Errorf("schema must be %q", SchemaV1)
	}
	if len(d.Categories) == 0 {
		return errors.New("categories must be non-empty")
	}
	seen := make(map[string]struct{}, len(d.Categories))
	for i, c := range d.Categories {
		if c.Code == "" {
			return fmt.Errorf("categories[%d].code is required", i)
		}
		if _, ok := seen[c.Code]; ok {
			return fmt.Errorf("categories[%d].code must be unique (duplicate %q)", i, c.Code)
		}
		seen[c.Code] = struct{}{}
	}
	seenDept := make(map[string]struct{}, len(d.Departments))
	for i, dept := range d.Departments {
		if dept.Code == "" {
			return fmt.Errorf("departments[%d].code is required", i)
		}
		if _, ok := seenDept[dept.Code]; ok {
			return fmt.Errorf("departments[%d].code must be unique (duplicate %q)", i, dept.Code)
		}
		seenDept[dept.Code] = struct{}{}
	}
	return nil
}

// Category returns the category with code.
func (d Data) Category(code string) (Category, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	idx := slices.IndexFunc(d.Categories, func(c Category) bool { return c.Code == code })
	if idx < 0 {
		return Category{}, false
	}
	return d.Categories[idx], true
}

// Folder returns the archive folder for a category code. Unknown codes fall
// back to the lowercased code itself.
func (d Data) Folder(code string) string {
	if c, ok := d.Category(code); ok && c.Folder != "" {
		return c.Folder
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return strings.ToLower(FallbackCategory)
	}
	return code
}

// Department returns the department with code.
func (d Data) Department(code string) (Department, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	idx := slices.IndexFunc(d.Departments, func(dep Department) bool { return dep.Code == code })
	if idx < 0 {
		return Department{}, false
	}
	return d.Departments[idx], true
}

// Clone returns an independent copy.
func (d Data) Clone() Data {
	out := Data{Schema: d.Schema, Departments: slices.Clone(d.Departments)}
	out.Categories = make([]Category, len(d.Categories))
	for i, c := range d.Categories {
		c.Keywords = slices.Clone(c.Keywords)
		out.Categories[i] = c
	}
	return out
}
