package detect

import "strings"

// Candidate is a blank field derived from document text rather than pixels.
type Candidate struct {
	X                int
	Y                int
	Width            int
	Height           int
	Area             int
	Context          string
	SuggestedContent string
}

// fieldKeywords maps a context type to the label phrases that indicate it.
// Matching is case-insensitive substring; the order of fieldTypeOrder
// decides which type wins when a line matches several.
var fieldTypeOrder = []string{
	"name", "age", "dropdown", "checkbox", "email", "phone", "address", "date", "signature",
}

var fieldKeywords = map[string][]string{
	"name":      {"enter your name", "please enter your name", "name of dependent", "full name"},
	"age":       {"age of dependent", "age:", "years old"},
	"dropdown":  {"select an item", "dropdown", "combo", "choose"},
	"checkbox":  {"check all that apply", "option 1", "option 2", "option 3"},
	"email":     {"email", "e-mail", "email address"},
	"phone":     {"phone", "telephone", "tel", "mobile"},
	"address":   {"address", "street", "location"},
	"date":      {"date", "birth", "dob"},
	"signature": {"signature", "sign", "initial"},
}

// VirtualFieldsFromText derives fillable fields from label lines in a text
// document. Each matched line yields one candidate placed down the page at
// x=50, y=100+60*i with a 400x40 box. When no keyword matches anywhere, any
// line longer than three characters ending in ':' becomes a general field.
func VirtualFieldsFromText(text string) []Candidate {
	lines := strings.Split(text, "\n")

	var out []Candidate
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "" {
			continue
		}
		fieldType := matchFieldType(lower)
		if fieldType == "" {
			continue
		}
		out = append(out, placeCandidate(len(out), fieldType, "Enter "+fieldType))
	}
	if len(out) > 0 {
		return out
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 3 || !strings.HasSuffix(trimmed, ":") {
			continue
		}
		fieldType := matchFieldType(strings.ToLower(trimmed))
		if fieldType == "" {
			fieldType = "general"
		}
		out = append(out, placeCandidate(len(out), fieldType, "Fill in: "+trimmed))
	}
	return out
}

func placeCandidate(index int, fieldType, suggested string) Candidate {
	return Candidate{
		X:                50,
		Y:                100 + index*60,
		Width:            400,
		Height:           40,
		Area:             16000,
		Context:          fieldType,
		SuggestedContent: suggested,
	}
}

func matchFieldType(lowerLine string) string {
	for _, fieldType := range fieldTypeOrder {
		for _, keyword := range fieldKeywords[fieldType] {
			if strings.Contains(lowerLine, keyword) {
				return fieldType
			}
		}
	}
	return ""
}

// fieldTypeEnum is the set of values the field_type column accepts.
var fieldTypeEnum = map[string]bool{
	"name":      true,
	"address":   true,
	"phone":     true,
	"email":     true,
	"date":      true,
	"signature": true,
	"general":   true,
}

// NormalizeFieldType maps a raw context keyword onto the stored field type.
// Contexts outside the enum (age, dropdown, checkbox...) become general.
func NormalizeFieldType(context string) string {
	if fieldTypeEnum[context] {
		return context
	}
	return "general"
}
