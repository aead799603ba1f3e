// Package prompts picks clarification messages for the slot-filling
// flow. The contract that matters: within one session the assistant
// never repeats the exact same sentence while unused variants remain.
package prompts

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Condition names a missing-field combination or a retry situation.
type Condition string

const (
	NeedName       Condition = "need_name"
	NeedPhone      Condition = "need_phone"
	NeedEmail      Condition = "need_email"
	NeedNamePhone  Condition = "need_name_phone"
	NeedNameEmail  Condition = "need_name_email"
	NeedPhoneEmail Condition = "need_phone_email"
	NeedAll        Condition = "need_all"
	RetryPhone     Condition = "retry_phone"
	RetryEmail     Condition = "retry_email"
)

// pools holds the phrase variants per condition, in French.
var pools = map[Condition][]string{
	NeedName: {
		"Puis-je avoir votre nom complet ?",
		"À quel nom dois-je enregistrer le rendez-vous ?",
		"Pouvez-vous m'indiquer votre nom, s'il vous plaît ?",
		"Comment vous appelez-vous ?",
	},
	NeedPhone: {
		"Quel est votre numéro de téléphone mobile ?",
		"Sur quel numéro peut-on vous joindre ?",
		"Pouvez-vous me communiquer votre numéro de portable ?",
		"Il me faudrait un numéro de mobile pour confirmer le rendez-vous.",
	},
	NeedEmail: {
		"Quelle est votre adresse email ?",
		"Sur quelle adresse email peut-on vous écrire ?",
		"Pouvez-vous m'indiquer votre email pour le récapitulatif ?",
	},
	NeedNamePhone: {
		"Pour continuer, j'ai besoin de votre nom et de votre numéro de mobile.",
		"Pouvez-vous m'indiquer votre nom complet et un numéro de téléphone ?",
	},
	NeedNameEmail: {
		"Il me faudrait votre nom complet et votre adresse email.",
		"Pouvez-vous me donner votre nom et un email de contact ?",
	},
	NeedPhoneEmail: {
		"Il me manque votre numéro de mobile et votre adresse email.",
		"Pouvez-vous m'indiquer un numéro de téléphone et un email ?",
	},
	NeedAll: {
		"Pour réserver, j'ai besoin de votre nom, votre numéro de mobile et votre email.",
		"Pouvez-vous m'indiquer votre nom complet, un numéro de téléphone et une adresse email ?",
	},
	RetryPhone: {
		"Ce numéro ne semble pas être un mobile algérien valide. Pouvez-vous vérifier ?",
		"Le numéro communiqué n'est pas reconnu, un format comme 05/06/07 XX XX XX XX convient.",
		"Je n'arrive pas à valider ce numéro, pouvez-vous le ressaisir ?",
	},
	RetryEmail: {
		"Cette adresse email ne semble pas valide, pouvez-vous la vérifier ?",
		"Je n'arrive pas à valider cet email, pouvez-vous le ressaisir ?",
	},
}

// Fallback is the generic phrase used once a pool is exhausted and the
// used-set is being recycled.
const Fallback = "Pouvez-vous me communiquer les informations manquantes pour votre rendez-vous ?"

// Selector chooses unused variants at random. The randomness source is
// injected so tests can be deterministic.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector. A nil rng falls back to a source
// seeded from the pool sizes, which is fine for production use.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(len(pools))<<32 | 0x5eed))
	}
	return &Selector{rng: rng}
}

// ConditionFor maps the missing-field set plus last-turn validation
// errors to the pool to draw from. Validation retries take precedence:
// the patient just supplied a value and needs to know it was refused.
func ConditionFor(missing []string, validationErrors map[string]string) Condition {
	if validationErrors[FieldPhone] != "" {
		return RetryPhone
	}
	if validationErrors[FieldEmail] != "" {
		return RetryEmail
	}

	set := map[string]bool{}
	for _, f := range missing {
		set[f] = true
	}
	switch {
	case set[FieldName] && set[FieldPhone] && set[FieldEmail]:
		return NeedAll
	case set[FieldName] && set[FieldPhone]:
		return NeedNamePhone
	case set[FieldName] && set[FieldEmail]:
		return NeedNameEmail
	case set[FieldPhone] && set[FieldEmail]:
		return NeedPhoneEmail
	case set[FieldName]:
		return NeedName
	case set[FieldPhone]:
		return NeedPhone
	case set[FieldEmail]:
		return NeedEmail
	}
	return NeedAll
}

// Field name constants mirrored from the session package to avoid a
// dependency from prompts onto session.
const (
	FieldName  = "name"
	FieldPhone = "phone"
	FieldEmail = "email"
)

// Pick returns an unused variant for the condition, marking it used in
// the supplied set. When every variant of the pool has been used, the
// pool's entries are released from the used-set and the generic
// fallback is returned for this turn.
func (s *Selector) Pick(used map[string]bool, cond Condition) string {
	pool, ok := pools[cond]
	if !ok || len(pool) == 0 {
		return Fallback
	}

	var unusedIdx []int
	for i := range pool {
		if !used[promptKey(cond, i)] {
			unusedIdx = append(unusedIdx, i)
		}
	}

	if len(unusedIdx) == 0 {
		// Pool exhausted: recycle and hand back the fallback, which is
		// allowed to repeat.
		for i := range pool {
			delete(used, promptKey(cond, i))
		}
		return Fallback
	}

	idx := unusedIdx[s.rng.Intn(len(unusedIdx))]
	used[promptKey(cond, idx)] = true
	return pool[idx]
}

func promptKey(cond Condition, idx int) string {
	return fmt.Sprintf("%s:%d", cond, idx)
}

// PoolSize reports how many variants a condition has, used by tests
// and by callers sizing retry budgets.
func PoolSize(cond Condition) int {
	return len(pools[cond])
}

// Conditions lists every known condition in stable order.
func Conditions() []Condition {
	out := make([]Condition, 0, len(pools))
	for c := range pools {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(string(out[i]), string(out[j])) < 0 })
	return out
}
