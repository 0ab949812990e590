package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a user-facing message
type Key string

// User-facing error messages returned by the HTTP API
const (
	KeyAudioExtractionFailed Key = "error.audio_extraction_failed"
	KeyInvalidFileType       Key = "error.invalid_file_type"
	KeyUnexpected            Key = "error.unexpected"
	KeyMissingFile           Key = "error.missing_file"
	KeyFileTooLarge          Key = "error.file_too_large"
)

// DefaultLanguage is used when Accept-Language names nothing we support
var DefaultLanguage = language.English

var translations = map[language.Tag]map[Key]string{
	language.English: {
		KeyAudioExtractionFailed: "Failed to extract audio from the uploaded file.",
		KeyInvalidFileType:       "Invalid file type: the uploaded file must be a video.",
		KeyUnexpected:            "An unexpected error occurred.",
		KeyMissingFile:           "No file was uploaded.",
		KeyFileTooLarge:          "The uploaded file is too large.",
	},
	language.Japanese: {
		KeyAudioExtractionFailed: "アップロードされたファイルから音声を抽出できませんでした。",
		KeyInvalidFileType:       "無効なファイル形式です：動画ファイルをアップロードしてください。",
		KeyUnexpected:            "予期しないエラーが発生しました。",
		KeyMissingFile:           "ファイルがアップロードされていません。",
		KeyFileTooLarge:          "アップロードされたファイルが大きすぎます。",
	},
}

// Translator resolves message keys for an Accept-Language header
type Translator struct {
	matcher   language.Matcher
	supported []language.Tag
	catalog   catalog.Catalog
}

// NewTranslator builds the message catalog. English comes first so it is the
// matcher's fallback.
func NewTranslator() (*Translator, error) {
	supported := []language.Tag{DefaultLanguage, language.Japanese}

	builder := catalog.NewBuilder(catalog.Fallback(DefaultLanguage))
	for _, tag := range supported {
		for key, text := range translations[tag] {
			if err := builder.SetString(tag, string(key), text); err != nil {
				return nil, fmt.Errorf("register %s message %s: %w", tag, key, err)
			}
		}
	}

	return &Translator{
		matcher:   language.NewMatcher(supported),
		supported: supported,
		catalog:   builder,
	}, nil
}

// Language returns the supported language that best matches acceptLanguage
func (t *Translator) Language(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return t.supported[index]
}

// Message returns the text for key in the language chosen from acceptLanguage
func (t *Translator) Message(acceptLanguage string, key Key) string {
	p := message.NewPrinter(t.Language(acceptLanguage), message.Catalog(t.catalog))
	return p.Sprintf(string(key))
}
