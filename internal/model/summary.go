package model

// ValidationSummary holds aggregate statistics over a batch of
// classification records. It is recomputed fresh from a record batch and
// never persisted independently of the report that contains it.
type ValidationSummary struct {
	// TotalRecords is the number of records examined, valid or not.
	TotalRecords int `json:"total_records"`

	// ValidCount is the number of records with no error marker and a
	// non-empty document category.
	ValidCount int `json:"valid_count"`

	// InvalidCount is TotalRecords - ValidCount.
	InvalidCount int `json:"invalid_count"`

	// FieldPresenceRates maps each label field name to the fraction of
	// all records where the field is present and non-empty on a valid
	// record. Rates are in [0, 1].
	FieldPresenceRates map[string]float64 `json:"field_presence_rates"`

	// CategoryDistribution counts valid records per document category,
	// sorted by descending count.
	CategoryDistribution []ValueCount `json:"category_distribution"`

	// DifficultyDistribution counts valid records per OCR difficulty,
	// sorted by descending count.
	DifficultyDistribution []ValueCount `json:"difficulty_distribution"`

	// LanguageDistribution counts valid records per primary language,
	// sorted by descending count. Language values are normalized to
	// title case so "english" and "English" tally together.
	LanguageDistribution []ValueCount `json:"language_distribution"`
}

// ValueCount is one entry of a distribution: a field value, how many valid
// records carry it, and its share of the valid records.
type ValueCount struct {
	// Value is the field value being counted.
	Value string `json:"value"`

	// Count is the number of valid records with this value.
	Count int `json:"count"`

	// Percentage is Count relative to the valid record count, in [0, 100].
	Percentage float64 `json:"percentage"`
}

// ValidRate returns the fraction of records that are valid, in [0, 1].
// Returns zero for an empty batch.
func (s *ValidationSummary) ValidRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.ValidCount) / float64(s.TotalRecords)
}
