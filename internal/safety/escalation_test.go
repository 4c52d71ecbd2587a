package safety

import "testing"

func months(n int) *int { return &n }

func TestCheckEscalation(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		ageMonths *int
		isMinor   bool
		lang      string
		wantID    string
		wantMatch bool
	}{
		{"infant fever emergency", "my baby has a fever", months(2), true, "en", "PED-001", true},
		{"breathing any age", "he can't breathe", nil, false, "en", "PED-003", true},
		{"infant fever rule precedes seizure", "fever and a seizure started", months(2), true, "en", "PED-001", true},
		{"unresponsive", "she won't wake up", months(24), true, "en", "PED-005", true},
		{"high fever 6mo", "temperature is 40.6 degrees", months(5), true, "en", "PED-002", true},
		{"rash fever minor", "rash and fever all day", months(36), true, "en", "PED-006", true},
		{"head injury minor", "fell on head at the playground", months(60), true, "en", "PED-007", true},
		{"no match adult query", "my blood pressure reading today", nil, false, "en", "", false},
		{"french breathing", "ne peut pas respirer du tout", nil, false, "fr", "PED-003", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := CheckEscalation(tt.query, tt.ageMonths, tt.isMinor, tt.lang)
			if matched != tt.wantMatch {
				t.Fatalf("matched = %v, want %v", matched, tt.wantMatch)
			}
			if matched && got.RuleID != tt.wantID {
				t.Fatalf("rule = %s, want %s", got.RuleID, tt.wantID)
			}
		})
	}
}

func TestEscalationMessagesCalmLanguage(t *testing.T) {
	banned := []string{"immediately", "urgently", "emergency", "danger", "warning"}
	for _, id := range []string{"PED-001", "PED-002", "PED-003", "PED-004", "PED-005", "PED-006", "PED-007"} {
		for _, lang := range []string{"en", "fr", "de"} {
			msg := escalationMessage(id, lang)
			for _, word := range banned {
				if containsFold(msg, word) {
					t.Fatalf("%s/%s message contains banned alarm word %q: %s", id, lang, word, msg)
				}
			}
		}
	}
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r = r + ('a' - 'A')
			}
			out[i] = r
		}
		return out
	}
	sl, subl = toLower(sl), toLower(subl)
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j := range subl {
			if sl[i+j] != subl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
