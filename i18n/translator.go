package i18n

import "sync"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			return "型が不正です"
		case "required":
			return "必須フィールドが不足しています"
		case "unknown_field":
			return "未知のフィールドです"
		case "invalid_enum":
			return "列挙値に含まれないシンボルです"
		case "union_no_match":
			return "どの選択肢にも一致しません"
		case "union_ambiguous":
			return "複数の選択肢に一致します"
		case "duplicate_key":
			return "キーが重複しています"
		case "duplicate_field":
			return "フィールド名が重複しています"
		case "invalid_default":
			return "デフォルト値がスキーマに一致しません"
		case "not_assignable":
			return "型に互換性がありません"
		case "no_serde":
			return "この記法ではシリアライズできません"
		case "parse_error":
			return "解析エラー"
		case "overflow":
			return "値が範囲外です"
		case "incomplete":
			return "必須フィールドが未設定です"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			return "invalid type"
		case "required":
			return "required field missing"
		case "unknown_field":
			return "unknown field"
		case "invalid_enum":
			return "symbol not in enum"
		case "union_no_match":
			return "no union alternative matched"
		case "union_ambiguous":
			return "more than one union alternative matched"
		case "constant":
			return "constant field cannot change"
		case "duplicate_key":
			return "duplicate key"
		case "duplicate_field":
			return "duplicate field name"
		case "invalid_default":
			return "default value does not match schema"
		case "invalid_schema":
			return "invalid schema"
		case "not_assignable":
			return "types are not assignable"
		case "no_serde":
			return "no serde for this shape"
		case "parse_error":
			return "parse error"
		case "overflow":
			return "value out of range"
		case "incomplete":
			return "required field not set"
		case "unknown_notation":
			return "unknown notation"
		}
	}
	return code
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
