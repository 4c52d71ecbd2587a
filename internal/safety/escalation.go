package safety

import "strings"

// Severity is the urgency tier of a triggered escalation rule.
type Severity int

const (
	SeverityAdvisory Severity = iota
	SeverityUrgent
	SeverityEmergency
)

// Action describes how the escalation result should be applied to the
// model's response.
type Action int

const (
	ActionAppendWarning Action = iota
	ActionPrependWarning
	ActionReplaceWithEmergency
)

// EscalationResult is returned when a pediatric safety rule fires. The
// model's own output is never consulted — these rules fire on the query.
type EscalationResult struct {
	RuleID   string
	Severity Severity
	Action   Action
	Message  string
}

type condition func(query string, ageMonths *int, isMinor bool) bool

type rule struct {
	id       string
	cond     condition
	severity Severity
	action   Action
	langKey  string
}

// keyword sets, localized en/fr/de, grounded verbatim on the original's
// pediatric escalation module.
var (
	feverKeywords = map[string][]string{
		"en": {"fever", "temperature", "hot to touch", "pyrexia"},
		"fr": {"fièvre", "température", "chaud au toucher"},
		"de": {"fieber", "temperatur", "heiß"},
	}
	highFeverKeywords = map[string][]string{
		"en": {"104", "40.5", "40.6", "very high fever", "extremely hot"},
		"fr": {"40,5", "40,6", "fièvre très élevée"},
		"de": {"40,5", "40,6", "sehr hohes fieber"},
	}
	breathingKeywords = map[string][]string{
		"en": {"can't breathe", "cannot breathe", "trouble breathing", "struggling to breathe", "blue lips", "gasping"},
		"fr": {"ne peut pas respirer", "difficulté à respirer", "lèvres bleues"},
		"de": {"kann nicht atmen", "atemnot", "blaue lippen"},
	}
	seizureKeywords = map[string][]string{
		"en": {"seizure", "convulsion", "convulsing", "fitting"},
		"fr": {"convulsion", "crise convulsive"},
		"de": {"krampfanfall", "anfall"},
	}
	unresponsiveKeywords = map[string][]string{
		"en": {"unresponsive", "won't wake up", "not waking up", "unconscious", "limp"},
		"fr": {"ne répond pas", "ne se réveille pas", "inconscient"},
		"de": {"reagiert nicht", "wacht nicht auf", "bewusstlos"},
	}
	rashFeverKeywords = map[string][]string{
		"en": {"rash", "purple spots", "non-blanching rash"},
		"fr": {"éruption cutanée", "taches violettes"},
		"de": {"hautausschlag", "violette flecken"},
	}
	headInjuryKeywords = map[string][]string{
		"en": {"head injury", "hit head", "fell on head", "head trauma"},
		"fr": {"blessure à la tête", "a heurté la tête", "traumatisme crânien"},
		"de": {"kopfverletzung", "auf den kopf gefallen"},
	}
)

func anyMatch(query string, sets map[string][]string, lang string) bool {
	q := strings.ToLower(query)
	for _, kw := range sets[lang] {
		if strings.Contains(q, strings.ToLower(kw)) {
			return true
		}
	}
	if lang != "en" {
		for _, kw := range sets["en"] {
			if strings.Contains(q, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func ageBelow(months int) func(ageMonths *int) bool {
	return func(ageMonths2 *int) bool {
		return ageMonths2 != nil && *ageMonths2 < months
	}
}

// rules returns the ordered rule table: Emergency rules before Urgent, so
// the first match wins and the most dangerous condition is never shadowed
// by a milder one matching the same query.
func rules(lang string) []rule {
	return []rule{
		{
			id: "PED-001", severity: SeverityEmergency, action: ActionReplaceWithEmergency,
			cond: func(q string, age *int, minor bool) bool {
				return ageBelow(3)(age) && anyMatch(q, feverKeywords, lang)
			},
		},
		{
			id: "PED-003", severity: SeverityEmergency, action: ActionPrependWarning,
			cond: func(q string, age *int, minor bool) bool { return anyMatch(q, breathingKeywords, lang) },
		},
		{
			id: "PED-004", severity: SeverityEmergency, action: ActionReplaceWithEmergency,
			cond: func(q string, age *int, minor bool) bool { return anyMatch(q, seizureKeywords, lang) },
		},
		{
			id: "PED-005", severity: SeverityEmergency, action: ActionReplaceWithEmergency,
			cond: func(q string, age *int, minor bool) bool { return anyMatch(q, unresponsiveKeywords, lang) },
		},
		{
			id: "PED-002", severity: SeverityUrgent, action: ActionPrependWarning,
			cond: func(q string, age *int, minor bool) bool {
				return ageBelow(6)(age) && anyMatch(q, highFeverKeywords, lang)
			},
		},
		{
			id: "PED-006", severity: SeverityUrgent, action: ActionPrependWarning,
			cond: func(q string, age *int, minor bool) bool { return minor && anyMatch(q, rashFeverKeywords, lang) },
		},
		{
			id: "PED-007", severity: SeverityUrgent, action: ActionPrependWarning,
			cond: func(q string, age *int, minor bool) bool { return minor && anyMatch(q, headInjuryKeywords, lang) },
		},
	}
}

// CheckEscalation evaluates the hard-coded pediatric rule table in order,
// returning the first match. The model is never consulted for triage.
func CheckEscalation(query string, ageMonths *int, isMinor bool, lang string) (*EscalationResult, bool) {
	if lang == "" {
		lang = "en"
	}
	q := strings.ToLower(query)
	for _, r := range rules(lang) {
		if r.cond(q, ageMonths, isMinor) {
			return &EscalationResult{
				RuleID:   r.id,
				Severity: r.severity,
				Action:   r.action,
				Message:  escalationMessage(r.id, lang),
			}, true
		}
	}
	return nil, false
}

// escalationMessage returns the calm-but-urgent, language-keyed message for
// a rule id. English is the fallback for any rule/language combination not
// explicitly authored. These messages name no diagnosis — they direct the
// reader to appropriate care.
func escalationMessage(ruleID, lang string) string {
	messages := map[string]map[string]string{
		"PED-001": {
			"en": "A fever in an infant under 3 months old needs same-day medical evaluation. Please contact a pediatrician or go to the nearest hospital now.",
			"fr": "Une fièvre chez un nourrisson de moins de 3 mois nécessite une évaluation médicale le jour même. Veuillez contacter un pédiatre ou un service d'urgence maintenant.",
			"de": "Fieber bei einem Säugling unter 3 Monaten erfordert eine medizinische Untersuchung noch am selben Tag. Bitte wenden Sie sich jetzt an einen Kinderarzt oder eine Notaufnahme.",
		},
		"PED-002": {
			"en": "A high fever in an infant under 6 months old should be evaluated by a doctor promptly.",
			"fr": "Une fièvre élevée chez un nourrisson de moins de 6 mois doit être évaluée rapidement par un médecin.",
			"de": "Hohes Fieber bei einem Säugling unter 6 Monaten sollte zeitnah ärztlich untersucht werden.",
		},
		"PED-003": {
			"en": "Difficulty breathing needs medical attention right away. Please call for help or go to the nearest hospital now.",
			"fr": "Les difficultés respiratoires nécessitent une attention médicale sans délai. Veuillez contacter les services d'urgence ou vous rendre au service d'urgence le plus proche.",
			"de": "Atembeschwerden erfordern sofortige medizinische Hilfe. Bitte wenden Sie sich an den Rettungsdienst oder die nächste Notaufnahme.",
		},
		"PED-004": {
			"en": "A seizure needs medical attention right away. Please call for help now.",
			"fr": "Une crise convulsive nécessite une attention médicale sans délai. Veuillez contacter les services d'urgence maintenant.",
			"de": "Ein Krampfanfall erfordert sofortige medizinische Hilfe. Bitte wenden Sie sich jetzt an den Rettungsdienst.",
		},
		"PED-005": {
			"en": "A child who will not wake up or respond needs medical attention right away. Please call for help now.",
			"fr": "Un enfant qui ne se réveille pas ou ne répond pas nécessite une attention médicale sans délai. Veuillez contacter les services d'urgence maintenant.",
			"de": "Ein Kind, das nicht aufwacht oder nicht reagiert, braucht sofortige medizinische Hilfe. Bitte wenden Sie sich jetzt an den Rettungsdienst.",
		},
		"PED-006": {
			"en": "A rash with fever in a child should be evaluated by a doctor promptly, especially if the rash does not fade when pressed.",
			"fr": "Une éruption cutanée accompagnée de fièvre chez un enfant doit être évaluée rapidement par un médecin, surtout si l'éruption ne s'efface pas à la pression.",
			"de": "Ein Hautausschlag mit Fieber bei einem Kind sollte zeitnah ärztlich untersucht werden, besonders wenn der Ausschlag beim Drücken nicht verblasst.",
		},
		"PED-007": {
			"en": "A head injury in a child should be evaluated by a doctor promptly, even if the child seems fine afterward.",
			"fr": "Une blessure à la tête chez un enfant doit être évaluée rapidement par un médecin, même si l'enfant semble aller bien ensuite.",
			"de": "Eine Kopfverletzung bei einem Kind sollte zeitnah ärztlich untersucht werden, auch wenn es dem Kind danach gut zu gehen scheint.",
		},
	}
	if byLang, ok := messages[ruleID]; ok {
		if m, ok := byLang[lang]; ok {
			return m
		}
		return byLang["en"]
	}
	return "Please seek prompt medical attention for this concern."
}
