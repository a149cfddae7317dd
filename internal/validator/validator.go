// Package validator maps the language labels that remote services and the
// widget send (codes, BCP-47 tags, English or native names) onto the closed
// set of catalog codes.
package validator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/valpere/bhasha/internal/langid"
)

// Validator checks language labels against a catalog.
type Validator struct {
	catalog *langid.Catalog
	names   map[string]string
}

// New creates a Validator for catalog.
func New(catalog *langid.Catalog) *Validator {
	names := make(map[string]string)
	for _, p := range catalog.Profiles() {
		if p.Name != "" {
			names[strings.ToLower(p.Name)] = p.Code
		}
		if p.Native != "" {
			names[strings.ToLower(p.Native)] = p.Code
		}
	}
	return &Validator{catalog: catalog, names: names}
}

// Normalize returns the catalog code for label, accepting plain codes,
// region-qualified tags ("hi-IN", "mr_IN") and display names.
func (v *Validator) Normalize(label string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return "", false
	}
	if v.catalog.Supports(s) {
		return s, true
	}
	if code, ok := v.names[s]; ok {
		return code, true
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	if code := base.String(); v.catalog.Supports(code) {
		return code, true
	}
	return "", false
}

// Resolve is Normalize with the default language as fallback.
func (v *Validator) Resolve(label string) string {
	if code, ok := v.Normalize(label); ok {
		return code
	}
	return langid.DefaultLanguage
}

// IsValid returns an error naming label when it does not map to a catalog code.
func (v *Validator) IsValid(label string) error {
	if _, ok := v.Normalize(label); !ok {
		return fmt.Errorf("unsupported language %q (supported: %s)", label, strings.Join(v.catalog.Codes(), ", "))
	}
	return nil
}
