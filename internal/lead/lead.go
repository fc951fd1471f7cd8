// Package lead mines a structured prospect record out of free-form user
// utterances. Everything here is pure: the same utterance applied to the same
// record always produces the same result, and re-applying it is a no-op.
package lead

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxIntentRunes         = 150
	maxLocationRunes       = 200
	maxLocationAppendRunes = 100
	locationSeparator      = " | "
	minNameRunes           = 2
)

// Record is the lead accumulated across the turns of one session.
// Empty strings mean "not captured yet".
type Record struct {
	Intent     string `json:"intent,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Location   string `json:"location,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
	Dispatched bool   `json:"dispatched,omitempty"`
}

// IsEmpty reports whether no field has been captured.
func (r Record) IsEmpty() bool {
	return r.Intent == "" && r.Name == "" && r.Email == "" && r.Location == "" && !r.Confirmed
}

// Ready reports whether the lead carries enough data to notify sales:
// an intent plus at least one way to identify the customer.
func Ready(r Record) bool {
	return r.Intent != "" && (r.Name != "" || r.Email != "")
}

var (
	commercialKeywords = []string{
		"necesito", "quiero", "busco", "precio", "cotizar", "cotización", "cotizacion",
		"presupuesto", "extintores", "extintor", "matafuegos", "matafuego", "comprar",
		"recarga", "empresa", "oficina", "local", "restaurant", "fábrica", "fabrica",
	}
	locationKeywords = []string{
		"m2", "metros", "oficina", "local", "restaurant", "depósito", "deposito",
		"fábrica", "fabrica", "galpón", "galpon", "edificio", "consorcio", "ubicad",
	}
	confirmationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bcorrecto\b`),
		regexp.MustCompile(`\bmismo n[uú]mero\b`),
		regexp.MustCompile(`\best[aá] bien\b`),
		regexp.MustCompile(`\bconfirmo\b`),
		regexp.MustCompile(`\bes correcto\b`),
		regexp.MustCompile(`^\s*(s[ií]|dale|ok)\s*[.!]*\s*$`),
	}
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bsoy\s+([\p{L}]+)`),
		regexp.MustCompile(`\bme llamo\s+([\p{L}]+)`),
		regexp.MustCompile(`\bmi nombre es\s+([\p{L}]+)`),
	}
	nameStoplist = map[string]struct{}{
		"eva": {}, "bot": {}, "asistente": {}, "argenfuego": {},
		"de": {}, "del": {}, "el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
		"yo": {}, "muy": {}, "nuevo": {}, "nueva": {}, "cliente": {}, "dueño": {}, "dueña": {},
		"encargado": {}, "encargada": {}, "responsable": {}, "gerente": {},
	}
)

// Update merges whatever the utterance reveals into existing and returns the
// new record. Set fields are never overwritten; Location only grows.
func Update(utterance string, existing Record) Record {
	out := existing
	text := strings.TrimSpace(utterance)
	if text == "" {
		return out
	}
	lower := strings.ToLower(text)

	if out.Intent == "" && containsAny(lower, commercialKeywords) {
		out.Intent = truncateRunes(text, maxIntentRunes)
	}
	if out.Email == "" {
		if m := emailPattern.FindString(text); m != "" {
			out.Email = m
		}
	}
	if out.Name == "" {
		if name, ok := extractName(lower); ok {
			out.Name = name
		}
	}
	if containsAny(lower, locationKeywords) {
		out.Location = appendLocation(out.Location, text)
	}
	if !out.Confirmed && isConfirmation(lower) {
		out.Confirmed = true
	}
	return out
}

func extractName(lower string) (string, bool) {
	for _, pattern := range namePatterns {
		match := pattern.FindStringSubmatch(lower)
		if len(match) < 2 {
			continue
		}
		candidate := strings.TrimSpace(match[1])
		if !acceptName(candidate) {
			continue
		}
		return titleCase(candidate), true
	}
	return "", false
}

func acceptName(candidate string) bool {
	if utf8.RuneCountInString(candidate) < minNameRunes {
		return false
	}
	_, blocked := nameStoplist[candidate]
	return !blocked
}

func appendLocation(current, text string) string {
	if current == "" {
		return truncateRunes(text, maxLocationRunes)
	}
	fragment := truncateRunes(text, maxLocationAppendRunes)
	if strings.Contains(current, fragment) {
		return current
	}
	return current + locationSeparator + fragment
}

func isConfirmation(lower string) bool {
	for _, p := range confirmationPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

func titleCase(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}
