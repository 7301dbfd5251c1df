// Package enrich fills in the derived candidate fields the scheduler and
// recruiters rely on.
package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/recruiter/internal/candidate"
)

const (
	StatusCompleted = "completed"
	NotSpecified    = "Not specified"
	UnknownName     = "Unknown Candidate"
)

var (
	nonNameChars = regexp.MustCompile(`[^a-zA-Z\s-]`)
	spaces       = regexp.MustCompile(`\s+`)
	yearsPattern = regexp.MustCompile(`(\d+)\s*\+?\s*years?`)

	seniorWords = []string{"senior", "lead", "principal", "staff"}
	juniorWords = []string{"junior", "entry", "associate"}
)

// Candidate returns an enriched copy of r. The input is not modified.
func Candidate(r *candidate.Record) *candidate.Record {
	out := &candidate.Record{}
	if r != nil {
		*out = *r
		out.Skills = append([]string(nil), r.Skills...)
	}

	if strings.TrimSpace(out.FullName) == "" {
		out.FullName = UnknownName
	}
	out.LinkedInURL = LinkedInURL(out.FullName)

	if strings.TrimSpace(out.CurrentRole) == "" {
		out.CurrentRole = NotSpecified
	}
	if strings.TrimSpace(out.CurrentCompany) == "" {
		out.CurrentCompany = NotSpecified
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}

	out.EnrichmentStatus = StatusCompleted
	out.ProfileCompleteness = Completeness(out)

	if strings.TrimSpace(out.YearsOfExperience) == "" {
		out.YearsOfExperience = ExperienceBucket(out.ExperienceSummary)
	}

	return out
}

// LinkedInURL guesses a profile URL from a name: "John Doe" gives
// https://www.linkedin.com/in/john-doe/.
func LinkedInURL(name string) string {
	slug := nonNameChars.ReplaceAllString(name, "")
	slug = spaces.ReplaceAllString(strings.TrimSpace(slug), "-")
	slug = strings.ToLower(slug)
	if slug == "" {
		slug = "unknown"
	}
	return "https://www.linkedin.com/in/" + slug + "/"
}

// Completeness is the percentage of the eight extracted fields that are filled.
func Completeness(r *candidate.Record) int {
	fields := []bool{
		filled(r.FullName),
		filled(r.Email),
		filled(r.Phone),
		len(r.Skills) > 0,
		filled(r.Education),
		filled(r.ExperienceSummary),
		filled(r.CurrentCompany),
		filled(r.CurrentRole),
	}

	count := 0
	for _, ok := range fields {
		if ok {
			count++
		}
	}

	return count * 100 / len(fields)
}

// ExperienceBucket estimates an experience range from a summary, using the
// first "N years" mention or seniority words.
func ExperienceBucket(summary string) string {
	summary = strings.ToLower(summary)

	if match := yearsPattern.FindStringSubmatch(summary); match != nil {
		years, err := strconv.Atoi(match[1])
		if err == nil {
			switch {
			case years < 2:
				return "0-2 years"
			case years < 5:
				return "2-5 years"
			case years < 10:
				return "5-10 years"
			default:
				return "10+ years"
			}
		}
	}

	for _, word := range seniorWords {
		if strings.Contains(summary, word) {
			return "5-10 years"
		}
	}
	for _, word := range juniorWords {
		if strings.Contains(summary, word) {
			return "0-2 years"
		}
	}

	return "2-5 years"
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}
