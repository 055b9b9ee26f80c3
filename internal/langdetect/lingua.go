package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minDocumentConfidence is the floor above which a language counts as
// present in a document. Two or more languages above it mark the document
// multilingual.
const minDocumentConfidence = 0.20

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// DetectDocument classifies a longer text. It returns the dominant ISO
// 639-1 code and whether more than one language scores above the document
// confidence floor; multilingual documents keep the dominant code but are
// flagged instead of forced into a single language.
func DetectDocument(text string) (string, bool) {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return "", false
	}

	confidences := getDetector().ComputeLanguageConfidenceValues(sample)
	return classifyConfidences(confidenceList(confidences))
}

type languageConfidence struct {
	code  string
	value float64
}

func confidenceList(values []lingua.ConfidenceValue) []languageConfidence {
	list := make([]languageConfidence, 0, len(values))
	for _, v := range values {
		code := strings.ToLower(v.Language().IsoCode639_1().String())
		if len(code) != 2 {
			continue
		}
		list = append(list, languageConfidence{code: code, value: v.Value()})
	}
	return list
}

// classifyConfidences implements the multilingual decision over an
// already-sorted (descending confidence) list.
func classifyConfidences(values []languageConfidence) (string, bool) {
	dominant := ""
	above := 0
	for _, v := range values {
		if v.value < minDocumentConfidence {
			continue
		}
		if dominant == "" {
			dominant = v.code
		}
		above++
	}
	return dominant, above > 1
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
