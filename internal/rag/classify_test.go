package rag

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		query string
		want  QueryType
	}{
		{"What medication am I taking for my blood pressure?", QueryMedication},
		{"I've been feeling a sharp pain in my chest", QuerySymptom},
		{"When was I first diagnosed with diabetes?", QueryTimeline},
		{"Am I allergic to penicillin?", QueryFactual},
		{"Can you summarize my health record?", QueryGeneral},
	}
	for _, c := range cases {
		if got := Classify(c.query); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestParamsForUnknownFallsBackToGeneral(t *testing.T) {
	p := ParamsFor(QueryType(99))
	if p.SemanticTopK != paramsByType[QueryGeneral].SemanticTopK {
		t.Fatalf("expected general params as fallback, got %+v", p)
	}
}
