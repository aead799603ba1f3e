// Package scope flags patient messages that must never be handled by
// the automated booking flow: medical questions, personal-data access,
// pricing disputes, legal threats, and prompt-injection attempts. The
// classifier only reports; escalation policy lives in the orchestrator.
package scope

import (
	"regexp"
	"strings"
)

// Category identifies which out-of-scope family a message belongs to.
type Category string

const (
	CategoryNone            Category = ""
	CategorySensitiveHealth Category = "sensitive_health"
	CategoryPersonalData    Category = "personal_data"
	CategoryPricing         Category = "pricing_uncertainty"
	CategoryPolicyLegal     Category = "policy_legal"
	CategorySecurity        Category = "jailbreak_or_security"
)

// Result contains the classification outcome for one message.
type Result struct {
	Matched    bool
	Category   Category
	Confidence float64
	Evidence   []string
}

type scopePattern struct {
	re     *regexp.Regexp
	label  string
	weight float64
}

// Patterns are French-first with English fallbacks, compiled once at
// package init.

var sensitiveHealthPatterns = []scopePattern{
	{regexp.MustCompile(`(?i)\b(cancer|tumeur|tumor|métastase|metastase|chimio(thérapie)?)\b`), "health:serious_diagnosis", 0.9},
	{regexp.MustCompile(`(?i)\b(douleur|mal)\s+(de|à|au|aux)\s+\p{L}+`), "health:pain_complaint", 0.6},
	{regexp.MustCompile(`(?i)\b(symptômes?|symptoms?|diagnostic|diagnosis)\b`), "health:symptoms", 0.7},
	{regexp.MustCompile(`(?i)\b(ordonnance|prescription|posologie|dosage)\b`), "health:prescription", 0.75},
	{regexp.MustCompile(`(?i)\b(médicaments?|medication|traitement)\s+(pour|for|contre)\b`), "health:treatment_advice", 0.75},
	{regexp.MustCompile(`(?i)\b(est-ce\s+grave|dois-je\s+m'inquiéter|is\s+it\s+serious)\b`), "health:worry", 0.8},
	{regexp.MustCompile(`(?i)\b(saigne(ment)?|hémorragie|urgence\s+vitale|fièvre\s+élevée)\b`), "health:acute", 0.85},
	{regexp.MustCompile(`(?i)\bj'ai\s+(un|une|des)\s+(cancer|tumeur|kyste|infection)\b`), "health:self_report", 0.9},
}

var personalDataPatterns = []scopePattern{
	{regexp.MustCompile(`(?i)\b(dossier|fichier)\s+(médical|medical|patient)\b`), "personal_data:medical_record", 0.8},
	{regexp.MustCompile(`(?i)\b(donne|montre|liste|show|list)[\p{L}\s-]*\b(patients?|clients?)\b`), "personal_data:other_patients", 0.8},
	{regexp.MustCompile(`(?i)\b(numéro|numero|adresse|email)\s+(du|de\s+la|d'un)\s+\p{L}+`), "personal_data:third_party_contact", 0.7},
	{regexp.MustCompile(`(?i)\b(supprime|efface|delete)\s+(mes|my)\s+(données|data|informations)\b`), "personal_data:erasure_request", 0.75},
	{regexp.MustCompile(`(?i)\brgpd|gdpr\b`), "personal_data:regulation", 0.7},
}

var pricingPatterns = []scopePattern{
	{regexp.MustCompile(`(?i)\b(combien|prix|tarif|coûte|cost|price)\b`), "pricing:quote_request", 0.6},
	{regexp.MustCompile(`(?i)\b(remboursement|remboursé|refund|rembourser)\b`), "pricing:refund", 0.75},
	{regexp.MustCompile(`(?i)\b(trop\s+cher|overcharged|facturé\s+deux\s+fois|double\s+facturation)\b`), "pricing:billing_dispute", 0.8},
	{regexp.MustCompile(`(?i)\b(assurance|mutuelle|cnas|casnos|insurance)\b`), "pricing:coverage", 0.7},
	{regexp.MustCompile(`(?i)\b(réduction|promotion|discount|gratuit)\b`), "pricing:discount", 0.6},
}

var policyLegalPatterns = []scopePattern{
	{regexp.MustCompile(`(?i)\b(avocat|lawyer|poursuite|porter\s+plainte|sue|lawsuit)\b`), "legal:threat", 0.85},
	{regexp.MustCompile(`(?i)\b(faute\s+professionnelle|malpractice|négligence)\b`), "legal:malpractice", 0.85},
	{regexp.MustCompile(`(?i)\b(responsabilité|liability|litige|dispute)\b`), "legal:liability", 0.7},
	{regexp.MustCompile(`(?i)\b(conditions\s+générales|terms\s+of\s+service|politique\s+de\s+confidentialité)\b`), "legal:policy_text", 0.6},
}

var securityPatterns = []scopePattern{
	{regexp.MustCompile(`(?i)ignore[\p{L}\s]*\b(instructions?|consignes?|règles?|rules?|prompts?)\b`), "security:ignore_instructions", 0.95},
	{regexp.MustCompile(`(?i)\b(oublie|forget|disregard)\s+(tes|tout|les|your|all)\b`), "security:forget_instructions", 0.9},
	{regexp.MustCompile(`(?i)\b(tu\s+es\s+maintenant|you\s+are\s+now|agis\s+comme|act\s+as)\b`), "security:role_reassignment", 0.85},
	{regexp.MustCompile(`(?i)\b(system\s*prompt|prompt\s+système|instructions?\s+cachées?)\b`), "security:prompt_exfiltration", 0.9},
	{regexp.MustCompile(`(?i)\b(jailbreak|dan\s*mode|mode\s+développeur|developer\s+mode)\b`), "security:jailbreak_keyword", 0.95},
	{regexp.MustCompile(`(?i)\b(api|secret|token|password|mot\s+de\s+passe)\s*(key|clé|cle)?\b.*\b(donne|give|reveal|montre)\b`), "security:credentials", 0.85},
	{regexp.MustCompile(`(?i)<\|im_start\|>|<\|im_end\|>|\[/?INST\]|\[/?SYS\]`), "security:special_tokens", 0.95},
	{regexp.MustCompile(`(?i)\b(répète|repeat)\s+(tout|everything)\s+(ce\s+qui\s+précède|above)\b`), "security:repeat_above", 0.85},
}

var categoryPatterns = map[Category][]scopePattern{
	CategorySensitiveHealth: sensitiveHealthPatterns,
	CategoryPersonalData:    personalDataPatterns,
	CategoryPricing:         pricingPatterns,
	CategoryPolicyLegal:     policyLegalPatterns,
	CategorySecurity:        securityPatterns,
}

// categoryRank breaks confidence ties: security and health dominate.
var categoryRank = map[Category]int{
	CategorySecurity:        5,
	CategorySensitiveHealth: 4,
	CategoryPersonalData:    3,
	CategoryPolicyLegal:     2,
	CategoryPricing:         1,
}

// Classify scans text against every category's pattern set and returns
// the dominant match. Confidence is the strongest pattern weight,
// boosted slightly when several patterns of the category fire.
func Classify(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}
	// Curly apostrophes are common on mobile keyboards.
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)

	best := Result{}
	for category, patterns := range categoryPatterns {
		var evidence []string
		maxWeight := 0.0
		for _, p := range patterns {
			if p.re.MatchString(text) {
				evidence = append(evidence, p.label)
				if p.weight > maxWeight {
					maxWeight = p.weight
				}
			}
		}
		if len(evidence) == 0 {
			continue
		}

		confidence := maxWeight + float64(len(evidence)-1)*0.05
		if confidence > 1.0 {
			confidence = 1.0
		}

		if betterThan(category, confidence, best) {
			best = Result{
				Matched:    true,
				Category:   category,
				Confidence: confidence,
				Evidence:   evidence,
			}
		}
	}
	return best
}

func betterThan(category Category, confidence float64, current Result) bool {
	if !current.Matched {
		return true
	}
	if confidence != current.Confidence {
		return confidence > current.Confidence
	}
	return categoryRank[category] > categoryRank[current.Category]
}
