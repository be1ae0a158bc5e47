package classify

// classificationPrompt instructs the vision model to label a document image
// for OCR/DLP testing. The model must return only JSON matching the record
// schema; field enumerations are spelled out because vision models drift
// toward free-form values without them.
const classificationPrompt = `Please classify this image for OCR/DLP system performance testing. Return classification labels in JSON format:

{
    "document_category": "Main document type (e.g., invoice, receipt, identity_card, passport, driver_license, bank_card, contract, certificate, etc.)",
    "document_subcategory": "Document subcategory (e.g., GST_invoice, commercial_invoice, restaurant_receipt, taxi_receipt, id_card_front, id_card_back, etc.)",
    "language_primary": "Primary language (e.g., English, Chinese, Hindi, Tamil, Arabic, Portuguese, Spanish, etc.)",
    "language_secondary": "Secondary language (if multilingual document)",
    "text_density": "Text density (dense/medium/sparse)",
    "text_clarity": "Text clarity (clear/blurry/partially_blurry)",
    "image_quality": "Image quality (high/medium/low)",
    "orientation": "Image orientation (upright/rotated_90/rotated_180/rotated_270/skewed)",
    "background_complexity": "Background complexity (simple/medium/complex)",
    "ocr_difficulty": "OCR difficulty level (easy/medium/hard/very_hard)",
    "sensitive_data_types": ["List of sensitive data types (e.g., name, id_number, bank_account, address, phone, etc.)"],
    "layout_type": "Layout type (table/list/paragraph/mixed/handwritten)",
    "special_features": ["Special features (e.g., watermark, stamp, signature, barcode, qr_code, logo, etc.)"],
    "testing_scenarios": ["Applicable testing scenarios (e.g., identity_verification, financial_audit, compliance_check, data_extraction, etc.)"],
    "challenge_factors": ["Challenge factors (e.g., small_font, background_noise, uneven_lighting, skewed, blurry, multilingual, etc.)"],
    "confidence_score": "Classification confidence (0-1)",
    "recommended_preprocessing": ["Recommended preprocessing steps (e.g., denoising, correction, contrast_enhancement, etc.)"]
}

Please ensure:
1. Classifications are precise and specific for OCR/DLP system performance evaluation
2. Identify all factors that may affect OCR performance
3. Provide practical testing scenario suggestions
4. If unable to determine a field, set it to null
5. Return only JSON, no other explanatory text
6. Use English for all field values`
