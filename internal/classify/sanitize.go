package classify

import (
	"strconv"
	"strings"
)

// stringFields are the scalar label keys the sanitizer normalizes.
var stringFields = []string{
	"document_category",
	"document_subcategory",
	"language_primary",
	"language_secondary",
	"text_density",
	"text_clarity",
	"image_quality",
	"orientation",
	"background_complexity",
	"ocr_difficulty",
	"layout_type",
}

// listFields are the array-valued label keys.
var listFields = []string{
	"sensitive_data_types",
	"special_features",
	"testing_scenarios",
	"challenge_factors",
	"recommended_preprocessing",
}

// sanitizeRecord normalizes common vision-model sloppiness in place so the
// document can still pass schema validation: JSON nulls and "null" strings
// are dropped, a bare string in a list position becomes a one-element list,
// and a numeric confidence delivered as a string is parsed.
//
// Only shape problems are repaired; values themselves are left alone.
// Anything still wrong after sanitization is a genuine schema violation.
func sanitizeRecord(m map[string]any) {
	for _, key := range stringFields {
		v, ok := m[key]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			if v == nil {
				delete(m, key)
			}
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "none") {
			delete(m, key)
			continue
		}
		m[key] = s
	}

	for _, key := range listFields {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, key)
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				delete(m, key)
			} else {
				m[key] = []any{s}
			}
		case []any:
			cleaned := make([]any, 0, len(t))
			for _, item := range t {
				if s, isString := item.(string); isString && strings.TrimSpace(s) != "" {
					cleaned = append(cleaned, strings.TrimSpace(s))
				}
			}
			if len(cleaned) == 0 {
				delete(m, key)
			} else {
				m[key] = cleaned
			}
		}
	}

	switch v := m["confidence_score"].(type) {
	case nil:
		delete(m, "confidence_score")
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			m["confidence_score"] = f
		} else {
			delete(m, "confidence_score")
		}
	}
}
