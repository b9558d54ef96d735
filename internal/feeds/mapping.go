package feeds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field is a canonical record field.
type Field string

const (
	FieldExternalID    Field = "external_id"
	FieldName          Field = "name"
	FieldDescription   Field = "description"
	FieldPrice         Field = "price"
	FieldOriginalPrice Field = "original_price"
	FieldImage         Field = "image"
	FieldURL           Field = "url"
	FieldCategory      Field = "category"
	FieldBrand         Field = "brand"
	FieldBarcode       Field = "barcode"
	FieldSKU           Field = "sku"
)

var knownFields = map[Field]bool{
	FieldExternalID: true, FieldName: true, FieldDescription: true,
	FieldPrice: true, FieldOriginalPrice: true, FieldImage: true,
	FieldURL: true, FieldCategory: true, FieldBrand: true,
	FieldBarcode: true, FieldSKU: true,
}

// Mapping says where each canonical field is read from. For every field the
// source keys are tried in order and the first non-empty value wins. JSON keys
// may be dotted paths into nested objects.
type Mapping struct {
	// Items names the JSON keys or XML elements that hold the entries.
	// CSV ignores it.
	Items  []string           `yaml:"items,omitempty" json:"items,omitempty"`
	Fields map[Field][]string `yaml:"fields" json:"fields"`
}

// Keys returns the source keys for a field.
func (m Mapping) Keys(f Field) []string {
	return m.Fields[f]
}

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := Mapping{
		Items:  append([]string(nil), m.Items...),
		Fields: make(map[Field][]string, len(m.Fields)),
	}
	for f, keys := range m.Fields {
		out.Fields[f] = append([]string(nil), keys...)
	}
	return out
}

// WithOverrides returns a copy in which each overridden field tries the given
// source key before its defaults. Keys of overrides are canonical field names.
func (m Mapping) WithOverrides(overrides map[string]string) (Mapping, error) {
	out := m.Clone()
	for name, key := range overrides {
		f := Field(name)
		if !knownFields[f] {
			return Mapping{}, fmt.Errorf("unknown feed field %q", name)
		}
		if key == "" {
			continue
		}
		out.Fields[f] = append([]string{key}, out.Fields[f]...)
	}
	return out, nil
}

// MappingSet holds one mapping per provider.
type MappingSet map[Provider]Mapping

// For returns the mapping of a provider.
func (s MappingSet) For(p Provider) (Mapping, error) {
	m, ok := s[p]
	if !ok {
		return Mapping{}, fmt.Errorf("no field mapping for provider %q", p)
	}
	return m.Clone(), nil
}

// DefaultMappings returns the built-in provider mappings.
func DefaultMappings() MappingSet {
	return MappingSet{
		ProviderLomadee: {
			Items: []string{"products", "offers"},
			Fields: map[Field][]string{
				FieldExternalID:    {"id", "sku"},
				FieldName:          {"name", "productName"},
				FieldDescription:   {"description"},
				FieldPrice:         {"price", "salePrice"},
				FieldOriginalPrice: {"oldPrice", "listPrice"},
				FieldImage:         {"image", "thumbnail"},
				FieldURL:           {"link", "url"},
				FieldCategory:      {"category.name", "categoryName"},
				FieldBrand:         {"brand"},
				FieldBarcode:       {"ean", "barcode"},
				FieldSKU:           {"sku"},
			},
		},
		ProviderAwin: {
			Items: []string{"product"},
			Fields: map[Field][]string{
				FieldExternalID:    {"aw_product_id", "merchant_product_id"},
				FieldName:          {"product_name"},
				FieldDescription:   {"description"},
				FieldPrice:         {"search_price"},
				FieldOriginalPrice: {"rrp_price"},
				FieldImage:         {"aw_image_url", "merchant_image_url"},
				FieldURL:           {"aw_deep_link", "merchant_deep_link"},
				FieldCategory:      {"merchant_category"},
				FieldBrand:         {"brand_name"},
				FieldBarcode:       {"ean"},
				FieldSKU:           {"merchant_product_id"},
			},
		},
		ProviderCSV: {
			Fields: map[Field][]string{
				FieldExternalID:    {"id", "sku"},
				FieldName:          {"name"},
				FieldDescription:   {"description"},
				FieldPrice:         {"price"},
				FieldOriginalPrice: {"original_price"},
				FieldImage:         {"image"},
				FieldURL:           {"url"},
				FieldCategory:      {"category"},
				FieldBrand:         {"brand"},
				FieldBarcode:       {"ean"},
				FieldSKU:           {"sku"},
			},
		},
	}
}

// LoadMappings reads provider mappings from a YAML file and layers them over
// the defaults. A provider entry replaces the item keys it sets and the key
// lists of the fields it names; everything else keeps its default. An empty
// path returns the defaults.
func LoadMappings(path string) (MappingSet, error) {
	set := DefaultMappings()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed mappings: %w", err)
	}

	var file map[Provider]Mapping
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feed mappings: %w", err)
	}

	for provider, override := range file {
		base, ok := set[provider]
		if !ok {
			return nil, fmt.Errorf("unknown feed provider %q", provider)
		}
		if len(override.Items) > 0 {
			base.Items = override.Items
		}
		for f, keys := range override.Fields {
			if !knownFields[f] {
				return nil, fmt.Errorf("provider %q: unknown feed field %q", provider, f)
			}
			base.Fields[f] = keys
		}
		set[provider] = base
	}
	return set, nil
}
