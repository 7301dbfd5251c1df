// Package candidate holds the structured candidate record produced by the
// extraction and enrichment stages and consumed by the interview scheduler.
package candidate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record is a typed candidate. Fields that the upstream stages may omit are
// plain strings defaulting to empty; use FromMap to build one from loose JSON.
type Record struct {
	FullName            string   `json:"full_name" mapstructure:"full_name"`
	Email               string   `json:"email" mapstructure:"email"`
	Phone               string   `json:"phone" mapstructure:"phone"`
	Skills              []string `json:"skills" mapstructure:"skills"`
	Education           string   `json:"education" mapstructure:"education"`
	ExperienceSummary   string   `json:"experience_summary" mapstructure:"experience_summary"`
	CurrentCompany      string   `json:"current_company" mapstructure:"current_company"`
	CurrentRole         string   `json:"current_role" mapstructure:"current_role"`
	YearsOfExperience   string   `json:"years_of_experience,omitempty" mapstructure:"years_of_experience"`
	LinkedInURL         string   `json:"linkedin_url,omitempty" mapstructure:"linkedin_url"`
	ProfileCompleteness int      `json:"profile_completeness,omitempty" mapstructure:"profile_completeness"`
	EnrichmentStatus    string   `json:"enrichment_status,omitempty" mapstructure:"enrichment_status"`
}

// FromMap decodes a loosely typed mapping (LLM output, enriched JSON file) into
// a Record. All defaulting rules live here:
//   - "name" is accepted when "full_name" is missing;
//   - skills may be a list or a comma separated string;
//   - scalar values of other types are stringified.
func FromMap(raw map[string]any) (*Record, error) {
	record := &Record{}
	if raw == nil {
		record.Skills = []string{}
		return record, nil
	}

	fields := make(map[string]any, len(raw))
	for key, value := range raw {
		if key == "skills" {
			continue
		}
		fields[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       flattenToString,
		Result:           record,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(fields); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}

	if strings.TrimSpace(record.FullName) == "" {
		if name, ok := raw["name"]; ok {
			record.FullName = stringify(name)
		}
	}

	record.Skills = normalizeSkills(raw["skills"])

	return record, nil
}

// Parse decodes a JSON document into a Record through FromMap.
func Parse(data []byte) (*Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse candidate json: %w", err)
	}

	return FromMap(raw)
}

// HasContact reports whether the candidate can be invited to an interview.
func (r *Record) HasContact() bool {
	return r != nil && strings.TrimSpace(r.Email) != ""
}

// DisplayName returns the name used in logs and calendar invites.
func (r *Record) DisplayName() string {
	if r == nil || strings.TrimSpace(r.FullName) == "" {
		return "Unknown"
	}
	return strings.TrimSpace(r.FullName)
}

// flattenToString lets list or object values land in string fields, which
// happens when the extraction model returns e.g. several degrees.
func flattenToString(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Slice, reflect.Array:
		value := reflect.ValueOf(data)
		parts := make([]string, 0, value.Len())
		for i := 0; i < value.Len(); i++ {
			if s := strings.TrimSpace(stringify(value.Index(i).Interface())); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	case reflect.Map:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	default:
		return data, nil
	}
}

func normalizeSkills(v any) []string {
	skills := []string{}

	switch typed := v.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(typed, ",") {
			if part = strings.TrimSpace(part); part != "" {
				skills = append(skills, part)
			}
		}
	case []string:
		for _, s := range typed {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	case []any:
		for _, item := range typed {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				skills = append(skills, s)
			}
		}
	default:
		if s := strings.TrimSpace(stringify(typed)); s != "" {
			skills = append(skills, s)
		}
	}

	return skills
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
