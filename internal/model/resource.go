// Package model describes the football resources and the rules for turning
// client payloads into store assignments.
package model

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the scalar type of a resource field.
type Kind string

const (
	// KindString is free text.
	KindString Kind = "string"
	// KindInteger is a signed whole number.
	KindInteger Kind = "integer"
	// KindYear is a calendar year stored as an integer.
	KindYear Kind = "year"
)

// IDField is the store-assigned surrogate key present on every record.
const IDField = "id"

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Field is one updatable attribute of a resource.
type Field struct {
	Name  string `yaml:"name"`
	Kind  Kind   `yaml:"kind"`
	Rules string `yaml:"rules,omitempty"`
}

// Messages holds the client-facing texts a resource answers with.
type Messages struct {
	Created              string `yaml:"created"`
	Updated              string `yaml:"updated"`
	Deleted              string `yaml:"deleted"`
	NotFound             string `yaml:"notFound"`
	IDRequired           string `yaml:"idRequired"`
	InvalidID            string `yaml:"invalidID"`
	MissingCreateFields  string `yaml:"missingCreateFields"`
	MissingReplaceFields string `yaml:"missingReplaceFields"`
	NoFields             string `yaml:"noFields"`
}

// Resource describes one table exposed as an HTTP collection.
type Resource struct {
	Name     string   `yaml:"name"`
	Table    string   `yaml:"table"`
	Fields   []Field  `yaml:"fields"`
	Messages Messages `yaml:"messages"`
}

// Columns returns the Field Set names in declaration order.
func (r Resource) Columns() []string {
	cols := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// Field looks up a Field Set member by name.
func (r Resource) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Path is the collection path the resource is served under.
func (r Resource) Path() string {
	return "/" + r.Name
}

// Catalog is the ordered set of resources the service exposes.
type Catalog struct {
	Version   string     `yaml:"version"`
	Resources []Resource `yaml:"resources"`

	byName map[string]int
}

// LoadCatalog parses catalog YAML and validates every resource descriptor.
func LoadCatalog(data []byte) (Catalog, error) {
	var parsed Catalog
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Catalog{}, fmt.Errorf("decoding resource catalog: %w", err)
	}
	if len(parsed.Resources) == 0 {
		return Catalog{}, fmt.Errorf("resource catalog has no resources")
	}

	parsed.byName = make(map[string]int, len(parsed.Resources))
	tables := make(map[string]struct{}, len(parsed.Resources))
	for i := range parsed.Resources {
		res := &parsed.Resources[i]
		res.Name = strings.TrimSpace(res.Name)
		res.Table = strings.TrimSpace(res.Table)
		if res.Table == "" {
			res.Table = res.Name
		}
		if !identifierPattern.MatchString(res.Name) {
			return Catalog{}, fmt.Errorf("resource name %q is not a valid identifier", res.Name)
		}
		if !identifierPattern.MatchString(res.Table) {
			return Catalog{}, fmt.Errorf("resource %q has invalid table name %q", res.Name, res.Table)
		}
		if _, exists := parsed.byName[res.Name]; exists {
			return Catalog{}, fmt.Errorf("resource catalog contains duplicate resource %q", res.Name)
		}
		if _, exists := tables[res.Table]; exists {
			return Catalog{}, fmt.Errorf("resource catalog maps table %q twice", res.Table)
		}
		if err := validateFields(res); err != nil {
			return Catalog{}, err
		}
		res.Messages = res.Messages.withDefaults()

		parsed.byName[res.Name] = i
		tables[res.Table] = struct{}{}
	}

	return parsed, nil
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded resource catalog is invalid: %v", err))
	}
	return c
}

// Lookup returns a resource by name.
func (c Catalog) Lookup(name string) (Resource, bool) {
	i, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Resource{}, false
	}
	return c.Resources[i], true
}

func validateFields(res *Resource) error {
	if len(res.Fields) == 0 {
		return fmt.Errorf("resource %q has no fields", res.Name)
	}

	seen := make(map[string]struct{}, len(res.Fields))
	for i := range res.Fields {
		f := &res.Fields[i]
		f.Name = strings.TrimSpace(f.Name)
		f.Rules = strings.TrimSpace(f.Rules)
		if !identifierPattern.MatchString(f.Name) {
			return fmt.Errorf("resource %q has invalid field name %q", res.Name, f.Name)
		}
		if f.Name == IDField {
			return fmt.Errorf("resource %q must not declare the %q field", res.Name, IDField)
		}
		if _, exists := seen[f.Name]; exists {
			return fmt.Errorf("resource %q declares field %q twice", res.Name, f.Name)
		}
		switch f.Kind {
		case KindString, KindInteger, KindYear:
		default:
			return fmt.Errorf("field %s.%s has unknown kind %q", res.Name, f.Name, f.Kind)
		}
		if err := checkRules(*f); err != nil {
			return fmt.Errorf("field %s.%s: %w", res.Name, f.Name, err)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func (m Messages) withDefaults() Messages {
	def := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	m.Created = def(m.Created, "Record created.")
	m.Updated = def(m.Updated, "Record updated.")
	m.Deleted = def(m.Deleted, "Record deleted.")
	m.NotFound = def(m.NotFound, "Record not found.")
	m.IDRequired = def(m.IDRequired, "ID is required.")
	m.InvalidID = def(m.InvalidID, "Invalid ID provided.")
	m.MissingCreateFields = def(m.MissingCreateFields, "All fields are required.")
	m.MissingReplaceFields = def(m.MissingReplaceFields, "Missing required fields.")
	m.NoFields = def(m.NoFields, "No fields to update.")
	return m
}
