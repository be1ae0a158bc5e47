package stats

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// titleCaser normalizes language names so "english" and "English" tally
// together in the language distribution.
var titleCaser = cases.Title(language.English)

// Summarize computes a ValidationSummary over the given records.
//
// A record counts as valid when it carries no error marker and has a
// non-empty document category. Presence rates are computed independently
// per field: fields are never assumed mutually exclusive or required
// together. The function reports on whatever records it is given; the
// record count does not have to match any image count.
func Summarize(records []model.ClassificationRecord) model.ValidationSummary {
	summary := model.ValidationSummary{
		TotalRecords:       len(records),
		FieldPresenceRates: make(map[string]float64, len(model.LabelFields())),
	}

	fieldCounts := make(map[string]int, len(model.LabelFields()))
	categories := make(map[string]int)
	difficulties := make(map[string]int)
	languages := make(map[string]int)

	for i := range records {
		rec := &records[i]
		if !rec.IsValid() {
			continue
		}
		summary.ValidCount++

		for _, field := range model.LabelFields() {
			if rec.FieldPresent(field) {
				fieldCounts[field]++
			}
		}

		categories[rec.DocumentCategory]++
		if rec.OCRDifficulty != "" {
			difficulties[rec.OCRDifficulty]++
		}
		if lang := normalizeLanguage(rec.LanguagePrimary); lang != "" {
			languages[lang]++
		}
	}

	summary.InvalidCount = summary.TotalRecords - summary.ValidCount

	// Presence rate is relative to the total record count, including
	// invalid records: an error-marked record drags every field's rate
	// down, which is what a dataset-quality check wants.
	for _, field := range model.LabelFields() {
		var rate float64
		if summary.TotalRecords > 0 {
			rate = float64(fieldCounts[field]) / float64(summary.TotalRecords)
		}
		summary.FieldPresenceRates[field] = rate
	}

	summary.CategoryDistribution = distribution(categories, summary.ValidCount)
	summary.DifficultyDistribution = distribution(difficulties, summary.ValidCount)
	summary.LanguageDistribution = distribution(languages, summary.ValidCount)

	return summary
}

// normalizeLanguage canonicalizes a language value for tallying.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(lang))
}

// distribution converts a count map into a list sorted by descending count.
// Ties break alphabetically so the output is deterministic.
func distribution(counts map[string]int, validTotal int) []model.ValueCount {
	if len(counts) == 0 {
		return nil
	}

	result := make([]model.ValueCount, 0, len(counts))
	for value, count := range counts {
		vc := model.ValueCount{Value: value, Count: count}
		if validTotal > 0 {
			vc.Percentage = float64(count) / float64(validTotal) * 100
		}
		result = append(result, vc)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})

	return result
}
