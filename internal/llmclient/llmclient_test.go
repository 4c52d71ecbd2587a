package llmclient

import "testing"

func TestValidateModelName(t *testing.T) {
	reject := []string{"", "..", "../x", "./x", "a b", "a;b", "a|b", "a\x00b", "/abs"}
	for _, n := range reject {
		if err := ValidateModelName(n); err == nil {
			t.Errorf("ValidateModelName(%q) = nil, want error", n)
		}
	}

	accept := []string{"x", "x:y", "ns/x", "ns/x:y"}
	for _, n := range accept {
		if err := ValidateModelName(n); err != nil {
			t.Errorf("ValidateModelName(%q) = %v, want nil", n, err)
		}
	}
}

func TestValidateBaseURL(t *testing.T) {
	accept := []string{"http://localhost:11434", "http://127.0.0.1:11434", "http://[::1]:11434"}
	for _, u := range accept {
		if err := ValidateBaseURL(u); err != nil {
			t.Errorf("ValidateBaseURL(%q) = %v, want nil", u, err)
		}
	}

	reject := []string{"http://example.com", "http://192.168.1.5:11434", "http://10.0.0.1"}
	for _, u := range reject {
		if err := ValidateBaseURL(u); err == nil {
			t.Errorf("ValidateBaseURL(%q) = nil, want error", u)
		}
	}
}
