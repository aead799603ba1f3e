// Package extract pulls candidate identity values (name, phone, email)
// out of free-form patient messages. Extraction is pure and
// deterministic: callers decide which candidate, if any, is confirmed.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------- package-level compiled regexes ----------

var (
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Runs of digits with optional separators, long enough to be a
	// phone number once the separators are stripped.
	phoneRE   = regexp.MustCompile(`\+?\d[\d .\-/()]{6,18}\d`)
	labeledRE = regexp.MustCompile(`(?i)(?:nom|name|prénom|prenom)\s*[:=]\s*([\p{L}][\p{L}'\- ]{1,60})`)
	quotedRE  = regexp.MustCompile(`[«"']([\p{L}][\p{L}'\- ]{1,60})[»"']`)
)

const nameWord = `[\p{L}][\p{L}\p{M}'\-]*`

var namePhrase = nameWord + `(?:\s+` + nameWord + `){0,2}`

// salutationPatterns are the self-introduction pattern family,
// French first since that is what patients write.
var salutationPatterns = buildSalutationPatterns()

func buildSalutationPatterns() []*regexp.Regexp {
	name := namePhrase
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)je\s+m'?appelle\s+(` + name + `)`),
		regexp.MustCompile(`(?i)je\s+suis\s+(` + name + `)(?:\s|,|\.|!|$)`),
		regexp.MustCompile(`(?i)moi\s+c'?est\s+(` + name + `)`),
		regexp.MustCompile(`(?i)mon\s+nom\s+est\s+(` + name + `)`),
		regexp.MustCompile(`(?i)ici\s+(` + name + `)(?:\s|,|\.|!|$)`),
		regexp.MustCompile(`(?i)my\s+name\s+is\s+(` + name + `)`),
		regexp.MustCompile(`(?i)i'?m\s+(` + name + `)(?:\s|,|\.|!|$)`),
		regexp.MustCompile(`(?i)this\s+is\s+(` + name + `)`),
	}
}

// standaloneCapRE matches a capitalized word pair in an otherwise
// short message, e.g. a patient answering "Silas Benali" to a name
// question.
var standaloneCapRE = regexp.MustCompile(`^\s*(\p{Lu}` + `[\p{L}'\-]+(?:\s+\p{Lu}[\p{L}'\-]+){0,2})\s*[.!]?\s*$`)

var textNormalizer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
)

// stopWords suppresses greetings and clinic jargon that the name
// patterns would otherwise capture.
var stopWords = map[string]bool{
	"bonjour": true, "bonsoir": true, "salut": true, "merci": true,
	"docteur": true, "madame": true, "monsieur": true, "clinique": true,
	"rendez": true, "vous": true, "rdv": true, "demain": true,
	"aujourd'hui": true, "disponible": true, "consultation": true,
	"patient": true, "patiente": true, "urgence": true, "cabinet": true,
	"nouveau": true, "nouvelle": true, "intéressé": true, "interesse": true,
	"intéressée": true, "intéressés": true, "intéressées": true, "interessee": true,
	"oui": true, "non": true, "svp": true, "stp": true, "voilà": true,
	"hello": true, "thanks": true, "please": true, "yes": true, "okay": true,
	"ok": true, "matin": true, "soir": true, "semaine": true, "prochaine": true,
	"annuler": true, "reporter": true, "confirmer": true, "réserver": true,
	"j'accepte": true, "accepte": true, "consens": true, "d'accord": true,
}

// blockedEmailDomains rejects placeholder addresses patients sometimes
// type while testing the widget.
var blockedEmailDomains = map[string]bool{
	"example.com": true, "example.org": true, "test.com": true,
	"email.com": true, "domain.com": true,
}

// Names returns deduplicated name candidates found in text. Pattern
// families are applied in a fixed order: salutation-prefixed, labeled,
// quoted, then standalone-capitalized.
func Names(text string) []string {
	normalized := textNormalizer.Replace(text)

	var out []string
	seen := map[string]bool{}

	add := func(raw string) {
		cleaned := cleanNameCandidate(raw)
		if cleaned == "" {
			return
		}
		key := strings.ToLower(cleaned)
		if !seen[key] {
			seen[key] = true
			out = append(out, cleaned)
		}
	}

	for _, re := range salutationPatterns {
		for _, m := range re.FindAllStringSubmatch(normalized, -1) {
			add(m[1])
		}
	}
	for _, m := range labeledRE.FindAllStringSubmatch(normalized, -1) {
		add(m[1])
	}
	for _, m := range quotedRE.FindAllStringSubmatch(normalized, -1) {
		add(m[1])
	}
	if m := standaloneCapRE.FindStringSubmatch(normalized); m != nil {
		add(m[1])
	}

	return out
}

// leadingTitles may precede the name inside a capture without
// invalidating it, e.g. "je suis monsieur Karim".
var leadingTitles = map[string]bool{
	"monsieur": true, "madame": true, "mademoiselle": true,
	"docteur": true, "dr": true, "mr": true, "m": true,
	"mme": true, "mlle": true,
	"bonjour": true, "bonsoir": true, "salut": true, "hello": true,
}

// cleanNameCandidate validates and normalizes a raw capture, returning
// "" when it does not look like a person's name.
func cleanNameCandidate(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	kept := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"«»()[]")
		if w == "" {
			continue
		}
		if !looksLikeNameWord(w) {
			if len(kept) > 0 {
				break
			}
			if leadingTitles[strings.ToLower(w)] {
				continue
			}
			// Any other non-name lead means the capture is a sentence
			// fragment ("intéressé par une consultation"), not a name.
			return ""
		}
		kept = append(kept, capitalize(w))
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, " ")
}

func looksLikeNameWord(word string) bool {
	n := utf8.RuneCountInString(word)
	if n < 2 || n > 30 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsLetter(first) {
		return false
	}
	if stopWords[strings.ToLower(word)] {
		return false
	}
	return hasVowel(word) && hasConsonant(word)
}

func hasVowel(word string) bool {
	return strings.ContainsAny(strings.ToLower(word), "aeiouyàâéèêëîïôùûü")
}

func hasConsonant(word string) bool {
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) && !strings.ContainsRune("aeiouyàâéèêëîïôùûü", r) {
			return true
		}
	}
	return false
}

func capitalize(word string) string {
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError || size == 0 {
		return word
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}

// Emails returns deduplicated, lowercased email candidates passing
// structural checks and the domain blocklist.
func Emails(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range emailRE.FindAllString(text, -1) {
		addr := strings.ToLower(strings.Trim(m, "."))
		if !validEmailShape(addr) {
			continue
		}
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

func validEmailShape(addr string) bool {
	at := strings.Count(addr, "@")
	if at != 1 || len(addr) > 254 {
		return false
	}
	parts := strings.SplitN(addr, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" || len(local) > 64 {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || !strings.Contains(domain, ".") {
		return false
	}
	if strings.Contains(addr, "..") {
		return false
	}
	return !blockedEmailDomains[domain]
}

// Phones returns deduplicated phone-shaped candidates. The validator
// decides whether a candidate is an acceptable mobile number.
func Phones(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range phoneRE.FindAllString(text, -1) {
		digits := countDigits(m)
		if digits < 8 || digits > 15 {
			continue
		}
		candidate := strings.TrimSpace(m)
		if !seen[candidate] {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
