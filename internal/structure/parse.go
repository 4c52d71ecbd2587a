package structure

import (
	"encoding/json"
	"strings"
)

type rawMedication struct {
	GenericName  string                  `json:"generic_name"`
	BrandName    string                  `json:"brand_name"`
	Dose         string                  `json:"dose"`
	Frequency    string                  `json:"frequency"`
	Route        string                  `json:"route"`
	Prescriber   string                  `json:"prescriber"`
	Status       string                  `json:"status"`
	StartDate    string                  `json:"start_date"`
	EndDate      string                  `json:"end_date"`
	Confidence   float64                 `json:"confidence"`
	Compounds    []rawCompoundIngredient `json:"compounds"`
	Tapers       []rawTaperingStep       `json:"tapers"`
	Instructions []string                `json:"instructions"`
}

type rawCompoundIngredient struct {
	IngredientName string `json:"ingredient_name"`
	Dose           string `json:"dose"`
}

type rawTaperingStep struct {
	StepOrder int    `json:"step_order"`
	Dose      string `json:"dose"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type rawDiagnosis struct {
	Name          string  `json:"name"`
	ICDCode       string  `json:"icd_code"`
	Status        string  `json:"status"`
	DiagnosedDate string  `json:"diagnosed_date"`
	Confidence    float64 `json:"confidence"`
}

type rawAllergy struct {
	Allergen   string  `json:"allergen"`
	Reaction   string  `json:"reaction"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

type rawProcedure struct {
	Name          string  `json:"name"`
	PerformedDate string  `json:"performed_date"`
	PerformedBy   string  `json:"performed_by"`
	Confidence    float64 `json:"confidence"`
}

type rawReferral struct {
	ToSpecialty    string  `json:"to_specialty"`
	ToProfessional string  `json:"to_professional"`
	Reason         string  `json:"reason"`
	ReferredDate   string  `json:"referred_date"`
	Confidence     float64 `json:"confidence"`
}

type rawSymptom struct {
	Description  string  `json:"description"`
	OnsetDate    string  `json:"onset_date"`
	ResolvedDate string  `json:"resolved_date"`
	Confidence   float64 `json:"confidence"`
}

type rawAppointment struct {
	ScheduledAt  string  `json:"scheduled_at"`
	Professional string  `json:"professional"`
	Reason       string  `json:"reason"`
	Status       string  `json:"status"`
	Confidence   float64 `json:"confidence"`
}

type rawVitalSign struct {
	Kind       string   `json:"kind"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	MeasuredAt string   `json:"measured_at"`
	Confidence float64  `json:"confidence"`
}

type rawLabResult struct {
	TestName           string   `json:"test_name"`
	Value              *float64 `json:"value"`
	ValueText          string   `json:"value_text"`
	Unit               string   `json:"unit"`
	ReferenceRangeLow  *float64 `json:"reference_range_low"`
	ReferenceRangeHigh *float64 `json:"reference_range_high"`
	AbnormalFlag       string   `json:"abnormal_flag"`
	CollectionDate     string   `json:"collection_date"`
	LabFacility        string   `json:"lab_facility"`
	OrderingPhysician  string   `json:"ordering_physician"`
	Confidence         float64  `json:"confidence"`
}

type rawEntities struct {
	Professional *ProfessionalHint `json:"professional"`
	Medications  []rawMedication   `json:"medications"`
	Diagnoses    []rawDiagnosis    `json:"diagnoses"`
	Allergies    []rawAllergy      `json:"allergies"`
	Procedures   []rawProcedure    `json:"procedures"`
	Referrals    []rawReferral     `json:"referrals"`
	Symptoms     []rawSymptom      `json:"symptoms"`
	Appointments []rawAppointment  `json:"appointments"`
	VitalSigns   []rawVitalSign    `json:"vital_signs"`
	LabResults   []rawLabResult    `json:"lab_results"`
}

// ParseResponse extracts ExtractedEntities from the model's raw response.
// It tolerates narrative text before or after the JSON object (as the
// IterativeDrill strategy's enumeration preamble produces) by locating the
// first brace-balanced JSON object in the response rather than requiring
// the whole response to be JSON. A response with no parseable JSON object
// yields an empty ExtractedEntities rather than an error — a structuring
// pass that found nothing is not a failure.
func ParseResponse(raw string) ExtractedEntities {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return ExtractedEntities{}
	}

	var parsed rawEntities
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return ExtractedEntities{}
	}

	out := ExtractedEntities{Professional: parsed.Professional}
	for _, m := range parsed.Medications {
		out.Medications = append(out.Medications, MedicationEntity{
			GenericName: m.GenericName, BrandName: m.BrandName, Dose: m.Dose,
			Frequency: m.Frequency, Route: m.Route, Prescriber: m.Prescriber,
			Status: m.Status, StartDate: m.StartDate, EndDate: m.EndDate,
			Confidence: m.Confidence, Instructions: m.Instructions,
			Compounds: convertCompounds(m.Compounds), Tapers: convertTapers(m.Tapers),
		})
	}
	for _, d := range parsed.Diagnoses {
		out.Diagnoses = append(out.Diagnoses, DiagnosisEntity{
			Name: d.Name, ICDCode: d.ICDCode, Status: d.Status, DiagnosedDate: d.DiagnosedDate, Confidence: d.Confidence,
		})
	}
	for _, a := range parsed.Allergies {
		out.Allergies = append(out.Allergies, AllergyEntity{
			Allergen: a.Allergen, Reaction: a.Reaction, Severity: a.Severity, Confidence: a.Confidence,
		})
	}
	for _, p := range parsed.Procedures {
		out.Procedures = append(out.Procedures, ProcedureEntity{
			Name: p.Name, PerformedDate: p.PerformedDate, PerformedBy: p.PerformedBy, Confidence: p.Confidence,
		})
	}
	for _, r := range parsed.Referrals {
		out.Referrals = append(out.Referrals, ReferralEntity{
			ToSpecialty: r.ToSpecialty, ToProfessional: r.ToProfessional, Reason: r.Reason,
			ReferredDate: r.ReferredDate, Confidence: r.Confidence,
		})
	}
	for _, s := range parsed.Symptoms {
		out.Symptoms = append(out.Symptoms, SymptomEntity{
			Description: s.Description, OnsetDate: s.OnsetDate, ResolvedDate: s.ResolvedDate, Confidence: s.Confidence,
		})
	}
	for _, a := range parsed.Appointments {
		out.Appointments = append(out.Appointments, AppointmentEntity{
			ScheduledAt: a.ScheduledAt, Professional: a.Professional, Reason: a.Reason, Status: a.Status, Confidence: a.Confidence,
		})
	}
	for _, v := range parsed.VitalSigns {
		out.VitalSigns = append(out.VitalSigns, VitalSignEntity{
			Kind: v.Kind, Value: v.Value, Unit: v.Unit, MeasuredAt: v.MeasuredAt, Confidence: v.Confidence,
		})
	}
	for _, l := range parsed.LabResults {
		out.LabResults = append(out.LabResults, LabResultEntity{
			TestName: l.TestName, Value: l.Value, ValueText: l.ValueText, Unit: l.Unit,
			ReferenceRangeLow: l.ReferenceRangeLow, ReferenceRangeHigh: l.ReferenceRangeHigh,
			AbnormalFlag: l.AbnormalFlag, CollectionDate: l.CollectionDate, LabFacility: l.LabFacility,
			OrderingPhysician: l.OrderingPhysician, Confidence: l.Confidence,
		})
	}
	return out
}

func convertCompounds(raw []rawCompoundIngredient) []CompoundIngredient {
	out := make([]CompoundIngredient, 0, len(raw))
	for _, c := range raw {
		out = append(out, CompoundIngredient{IngredientName: c.IngredientName, Dose: c.Dose})
	}
	return out
}

func convertTapers(raw []rawTaperingStep) []TaperingStep {
	out := make([]TaperingStep, 0, len(raw))
	for _, t := range raw {
		out = append(out, TaperingStep{StepOrder: t.StepOrder, Dose: t.Dose, StartDate: t.StartDate, EndDate: t.EndDate})
	}
	return out
}

// extractJSONObject returns the first brace-balanced JSON object substring
// in raw, ignoring braces that appear inside string literals. Returns ""
// if no balanced object is found.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
