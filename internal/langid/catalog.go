package langid

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is returned whenever the input carries no usable signal.
const DefaultLanguage = "en"

//go:embed profiles.yaml
var defaultProfiles []byte

// ProfileSpec is the declarative form of a language profile as it appears in
// the catalog file.
type ProfileSpec struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Native      string   `yaml:"native"`
	SpeechCode  string   `yaml:"speech_code"`
	Script      string   `yaml:"script"`
	MatchScript bool     `yaml:"match_script"`
	Patterns    []string `yaml:"patterns"`
	Greetings   []string `yaml:"greetings"`
	Hints       []string `yaml:"hints"`
}

type catalogFile struct {
	Languages []ProfileSpec `yaml:"languages"`
}

// Profile is a compiled language profile.
type Profile struct {
	Code       string
	Name       string
	Native     string
	SpeechCode string

	// Script is the native writing system, nil for languages written only in Latin.
	Script *unicode.RangeTable
	// MatchScript makes any token containing Script count as a match.
	MatchScript bool

	Patterns  []*regexp.Regexp
	Greetings []string
	// Hints are example words quoted to remote detectors.
	Hints []string
}

// HasScript reports whether word contains a character of the profile's native script.
func (p *Profile) HasScript(word string) bool {
	if p.Script == nil {
		return false
	}
	for _, r := range word {
		if unicode.Is(p.Script, r) {
			return true
		}
	}
	return false
}

// Matches reports whether a single token is evidence for this language.
func (p *Profile) Matches(token string) bool {
	for _, re := range p.Patterns {
		if re.MatchString(token) {
			return true
		}
	}
	return p.MatchScript && p.HasScript(token)
}

// Catalog is the ordered set of supported languages. The order is the fixed
// enumeration order for every tie-break.
type Catalog struct {
	profiles []*Profile
	byCode   map[string]*Profile
}

// DefaultCatalog compiles the embedded profile table.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultProfiles)
}

// MustDefaultCatalog is DefaultCatalog for package-level initialisation.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("langid: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path. An empty path yields the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and compiles a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return NewCatalog(f.Languages)
}

// NewCatalog compiles specs in the given order. The default language must be
// present and must not carry patterns or a script.
func NewCatalog(specs []ProfileSpec) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]*Profile, len(specs))}

	for _, spec := range specs {
		code := strings.ToLower(strings.TrimSpace(spec.Code))
		if code == "" {
			return nil, fmt.Errorf("profile %q: empty code", spec.Name)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("profile %q: duplicate code", code)
		}

		p := &Profile{
			Code:        code,
			Name:        spec.Name,
			Native:      spec.Native,
			SpeechCode:  spec.SpeechCode,
			MatchScript: spec.MatchScript,
			Hints:       spec.Hints,
		}

		if spec.Script != "" {
			table, ok := unicode.Scripts[spec.Script]
			if !ok {
				return nil, fmt.Errorf("profile %q: unknown script %q", code, spec.Script)
			}
			p.Script = table
		} else if spec.MatchScript {
			return nil, fmt.Errorf("profile %q: match_script set without script", code)
		}

		for _, pat := range spec.Patterns {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, fmt.Errorf("profile %q: bad pattern %q: %w", code, pat, err)
			}
			p.Patterns = append(p.Patterns, re)
		}

		for _, g := range spec.Greetings {
			if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
				p.Greetings = append(p.Greetings, g)
			}
		}

		if code == DefaultLanguage && (len(p.Patterns) > 0 || p.Script != nil) {
			return nil, fmt.Errorf("profile %q: default language cannot carry patterns or script", code)
		}

		c.profiles = append(c.profiles, p)
		c.byCode[code] = p
	}

	if _, ok := c.byCode[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("catalog must contain the default language %q", DefaultLanguage)
	}

	return c, nil
}

// Profiles returns the profiles in enumeration order.
func (c *Catalog) Profiles() []*Profile {
	out := make([]*Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Codes returns the language codes in enumeration order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		codes[i] = p.Code
	}
	return codes
}

// Lookup returns the profile for code.
func (c *Catalog) Lookup(code string) (*Profile, bool) {
	p, ok := c.byCode[strings.ToLower(code)]
	return p, ok
}

// Supports reports whether code belongs to the catalog.
func (c *Catalog) Supports(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}
