package structure

// ComputeConfidence folds per-entity confidence, validation warning count,
// and a grounding score (how much of what was extracted is actually
// traceable back to the source text) into one overall score. It falls
// monotonically as warnings accumulate: a structuring pass covered in
// flagged fields never reports higher confidence than a clean one with
// the same entity-level scores.
func ComputeConfidence(e ExtractedEntities, warnings []string, grounding float64) float64 {
	perEntity := averageEntityConfidence(e)

	score := 0.5*perEntity + 0.5*grounding
	penalty := 0.05 * float64(len(warnings))
	score -= penalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func averageEntityConfidence(e ExtractedEntities) float64 {
	var sum float64
	var count int
	for _, m := range e.Medications {
		sum += m.Confidence
		count++
	}
	for _, d := range e.Diagnoses {
		sum += d.Confidence
		count++
	}
	for _, a := range e.Allergies {
		sum += a.Confidence
		count++
	}
	for _, p := range e.Procedures {
		sum += p.Confidence
		count++
	}
	for _, r := range e.Referrals {
		sum += r.Confidence
		count++
	}
	for _, s := range e.Symptoms {
		sum += s.Confidence
		count++
	}
	for _, a := range e.Appointments {
		sum += a.Confidence
		count++
	}
	for _, v := range e.VitalSigns {
		sum += v.Confidence
		count++
	}
	for _, l := range e.LabResults {
		sum += l.Confidence
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
