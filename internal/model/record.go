package model

import "time"

// Canonical label field names as they appear in the JSONL output.
// These are the keys the aggregator tabulates presence rates for.
const (
	FieldDocumentCategory         = "document_category"
	FieldDocumentSubcategory      = "document_subcategory"
	FieldLanguagePrimary          = "language_primary"
	FieldLanguageSecondary        = "language_secondary"
	FieldTextDensity              = "text_density"
	FieldTextClarity              = "text_clarity"
	FieldImageQuality             = "image_quality"
	FieldOrientation              = "orientation"
	FieldBackgroundComplexity     = "background_complexity"
	FieldOCRDifficulty            = "ocr_difficulty"
	FieldLayoutType               = "layout_type"
	FieldSensitiveDataTypes       = "sensitive_data_types"
	FieldSpecialFeatures          = "special_features"
	FieldTestingScenarios         = "testing_scenarios"
	FieldChallengeFactors         = "challenge_factors"
	FieldConfidenceScore          = "confidence_score"
	FieldRecommendedPreprocessing = "recommended_preprocessing"
)

// LabelFields lists every label field in canonical reporting order.
// The aggregator computes a presence rate for each of these.
func LabelFields() []string {
	return []string{
		FieldDocumentCategory,
		FieldDocumentSubcategory,
		FieldLanguagePrimary,
		FieldLanguageSecondary,
		FieldTextDensity,
		FieldTextClarity,
		FieldImageQuality,
		FieldOrientation,
		FieldBackgroundComplexity,
		FieldOCRDifficulty,
		FieldLayoutType,
		FieldSensitiveDataTypes,
		FieldSpecialFeatures,
		FieldTestingScenarios,
		FieldChallengeFactors,
		FieldConfidenceScore,
		FieldRecommendedPreprocessing,
	}
}

// ClassificationRecord is one classification result for one image.
// A record is either well-formed (label fields populated, Error empty) or
// error-marked (Error set, label fields empty). The classifier produces
// records; the aggregator only reads them.
//
// Design decision: We use a flat struct with explicit fields rather than a
// map[string]any because:
//  1. The label schema is fixed and known at compile time
//  2. Typed fields make the aggregator and report code straightforward
//  3. JSON tags keep the on-disk JSONL format stable
type ClassificationRecord struct {
	// DocumentCategory is the main document type (invoice, receipt,
	// identity_card, passport, bank_card, contract, certificate, ...).
	// A record with an empty category counts as invalid.
	DocumentCategory string `json:"document_category,omitempty"`

	// DocumentSubcategory refines the category (GST_invoice,
	// restaurant_receipt, id_card_front, ...).
	DocumentSubcategory string `json:"document_subcategory,omitempty"`

	// LanguagePrimary is the dominant language of the document text.
	LanguagePrimary string `json:"language_primary,omitempty"`

	// LanguageSecondary is set for multilingual documents.
	LanguageSecondary string `json:"language_secondary,omitempty"`

	// TextDensity is one of dense/medium/sparse.
	TextDensity string `json:"text_density,omitempty"`

	// TextClarity is one of clear/blurry/partially_blurry.
	TextClarity string `json:"text_clarity,omitempty"`

	// ImageQuality is one of high/medium/low.
	ImageQuality string `json:"image_quality,omitempty"`

	// Orientation is one of upright/rotated_90/rotated_180/rotated_270/skewed.
	Orientation string `json:"orientation,omitempty"`

	// BackgroundComplexity is one of simple/medium/complex.
	BackgroundComplexity string `json:"background_complexity,omitempty"`

	// OCRDifficulty is one of easy/medium/hard/very_hard.
	OCRDifficulty string `json:"ocr_difficulty,omitempty"`

	// LayoutType is one of table/list/paragraph/mixed/handwritten.
	LayoutType string `json:"layout_type,omitempty"`

	// SensitiveDataTypes lists PII kinds visible in the document
	// (name, id_number, bank_account, address, phone, ...).
	SensitiveDataTypes []string `json:"sensitive_data_types,omitempty"`

	// SpecialFeatures lists notable visual elements
	// (watermark, stamp, signature, barcode, qr_code, logo, ...).
	SpecialFeatures []string `json:"special_features,omitempty"`

	// TestingScenarios lists OCR/DLP test scenarios this image suits.
	TestingScenarios []string `json:"testing_scenarios,omitempty"`

	// ChallengeFactors lists conditions expected to degrade OCR
	// (small_font, background_noise, uneven_lighting, skewed, ...).
	ChallengeFactors []string `json:"challenge_factors,omitempty"`

	// ConfidenceScore is the model's self-reported confidence in [0, 1].
	ConfidenceScore float64 `json:"confidence_score,omitempty"`

	// RecommendedPreprocessing lists preprocessing steps suggested before
	// OCR (denoising, deskew, contrast_enhancement, ...).
	RecommendedPreprocessing []string `json:"recommended_preprocessing,omitempty"`

	// Error marks the record as a classification failure. When set, the
	// label fields above are empty and the record counts as invalid.
	Error string `json:"error,omitempty"`

	// RawResponse preserves the unparseable model output for debugging.
	// Only set on parse failures.
	RawResponse string `json:"raw_response,omitempty"`

	// Metadata ties the record back to the image it describes.
	Metadata RecordMetadata `json:"_metadata"` //nolint:tagliatelle // leading underscore keeps metadata visually separate in JSONL
}

// RecordMetadata holds provenance information for a classification record.
type RecordMetadata struct {
	// ID is a unique identifier for this record.
	ID string `json:"id"`

	// ImagePath is the local path of the classified image.
	ImagePath string `json:"image_path"`

	// ClassifiedAt is when the classification completed.
	ClassifiedAt time.Time `json:"classified_at"`

	// Model is the vision model that produced the labels.
	Model string `json:"model,omitempty"`

	// Purpose tags the dataset this record was produced for.
	Purpose string `json:"purpose,omitempty"`

	// ImageInfo describes the image file itself, when inspection succeeded.
	ImageInfo *ImageInfo `json:"image_info,omitempty"`
}

// ImageInfo describes a downloaded image file.
type ImageInfo struct {
	// Width and Height are pixel dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoded image format (jpeg, png, webp).
	Format string `json:"format"`

	// SizeBytes is the file size on disk.
	SizeBytes int64 `json:"size_bytes"`

	// EXIFOrientation is the raw EXIF orientation tag value (1-8),
	// or zero when the image carries no EXIF data.
	EXIFOrientation int `json:"exif_orientation,omitempty"`
}

// NewErrorRecord creates an error-marked record for an image that could not
// be classified. The record carries no label fields and counts as invalid.
func NewErrorRecord(imagePath, errMsg string) ClassificationRecord {
	return ClassificationRecord{
		Error: errMsg,
		Metadata: RecordMetadata{
			ImagePath:    imagePath,
			ClassifiedAt: time.Now(),
		},
	}
}

// IsValid reports whether the record counts as a valid classification:
// no error marker and a non-empty document category.
func (r *ClassificationRecord) IsValid() bool {
	return r.Error == "" && r.DocumentCategory != ""
}

// FieldPresent reports whether the named label field is present and
// non-empty on this record. List-valued fields are present when non-empty;
// the confidence score is present when greater than zero.
// Unknown field names report false.
func (r *ClassificationRecord) FieldPresent(field string) bool {
	switch field {
	case FieldDocumentCategory:
		return r.DocumentCategory != ""
	case FieldDocumentSubcategory:
		return r.DocumentSubcategory != ""
	case FieldLanguagePrimary:
		return r.LanguagePrimary != ""
	case FieldLanguageSecondary:
		return r.LanguageSecondary != ""
	case FieldTextDensity:
		return r.TextDensity != ""
	case FieldTextClarity:
		return r.TextClarity != ""
	case FieldImageQuality:
		return r.ImageQuality != ""
	case FieldOrientation:
		return r.Orientation != ""
	case FieldBackgroundComplexity:
		return r.BackgroundComplexity != ""
	case FieldOCRDifficulty:
		return r.OCRDifficulty != ""
	case FieldLayoutType:
		return r.LayoutType != ""
	case FieldSensitiveDataTypes:
		return len(r.SensitiveDataTypes) > 0
	case FieldSpecialFeatures:
		return len(r.SpecialFeatures) > 0
	case FieldTestingScenarios:
		return len(r.TestingScenarios) > 0
	case FieldChallengeFactors:
		return len(r.ChallengeFactors) > 0
	case FieldConfidenceScore:
		return r.ConfidenceScore > 0
	case FieldRecommendedPreprocessing:
		return len(r.RecommendedPreprocessing) > 0
	default:
		return false
	}
}
