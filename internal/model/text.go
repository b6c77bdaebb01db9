package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLang is the language every DisplayText must carry.
const DefaultLang = "en"

// DisplayText maps language tags to text. A plain string is stored under
// DefaultLang.
type DisplayText map[string]string

// Text returns a DisplayText holding s in the default language.
func Text(s string) DisplayText {
	if s == "" {
		return nil
	}
	return DisplayText{DefaultLang: s}
}

// ParseDisplayText converts a decoded string or string table into a
// DisplayText.
func ParseDisplayText(v any) (DisplayText, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Text(val), nil
	case map[string]any:
		out := make(DisplayText, len(val))
		for k, raw := range val {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("text for %q must be a string, got %T", k, raw)
			}
			if err := out.put(k, s); err != nil {
				return nil, err
			}
		}
		return out, out.validate()
	case map[string]string:
		out := make(DisplayText, len(val))
		for k, s := range val {
			if err := out.put(k, s); err != nil {
				return nil, err
			}
		}
		return out, out.validate()
	default:
		return nil, fmt.Errorf("text must be a string or table, got %T", v)
	}
}

// put stores s under the normalized lang, rejecting keys that collide once
// normalized.
func (t DisplayText) put(lang, s string) error {
	key := normalizeLang(lang)
	if _, dup := t[key]; dup {
		return fmt.Errorf("duplicate text language %q", key)
	}
	t[key] = s
	return nil
}

func (t DisplayText) validate() error {
	if len(t) == 0 {
		return nil
	}
	if _, ok := t[DefaultLang]; !ok {
		return fmt.Errorf("text is missing the %q entry", DefaultLang)
	}
	return nil
}

// IsZero reports whether no text is present.
func (t DisplayText) IsZero() bool {
	return len(t) == 0
}

// Default returns the default-language text.
func (t DisplayText) Default() string {
	return t[DefaultLang]
}

// Resolve returns the text best matching lang.
func (t DisplayText) Resolve(lang string) string {
	if len(t) == 0 {
		return ""
	}
	if s, ok := t[normalizeLang(lang)]; ok {
		return s
	}
	keys := t.langs()
	if lang != "" {
		if want, err := language.Parse(lang); err == nil {
			tags := make([]language.Tag, 0, len(keys))
			usable := make([]string, 0, len(keys))
			for _, k := range keys {
				tag, err := language.Parse(k)
				if err != nil {
					continue
				}
				tags = append(tags, tag)
				usable = append(usable, k)
			}
			if len(tags) > 0 {
				_, idx, conf := language.NewMatcher(tags).Match(want)
				if conf != language.No {
					return t[usable[idx]]
				}
			}
		}
	}
	if s, ok := t[DefaultLang]; ok {
		return s
	}
	return t[keys[0]]
}

func (t DisplayText) langs() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func (t DisplayText) onlyDefault() bool {
	_, ok := t[DefaultLang]
	return ok && len(t) == 1
}

// MarshalJSON encodes default-only text as a plain string.
func (t DisplayText) MarshalJSON() ([]byte, error) {
	if t.onlyDefault() {
		return json.Marshal(t[DefaultLang])
	}
	return json.Marshal(map[string]string(t))
}

// UnmarshalJSON accepts a string or an object of strings.
func (t *DisplayText) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDisplayText(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML encodes default-only text as a plain string.
func (t DisplayText) MarshalYAML() (any, error) {
	if t.onlyDefault() {
		return t[DefaultLang], nil
	}
	return map[string]string(t), nil
}

// UnmarshalYAML accepts a scalar or a mapping of strings.
func (t *DisplayText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = Text(node.Value)
		return nil
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		parsed, err := ParseDisplayText(m)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	default:
		return fmt.Errorf("line %d: text must be a string or mapping", node.Line)
	}
}
