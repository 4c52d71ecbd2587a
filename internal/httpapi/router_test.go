package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ktiyab/coheara/internal/config"
	"github.com/ktiyab/coheara/internal/llmclient"
	"github.com/ktiyab/coheara/internal/repository"
)

type testHarness struct {
	router http.Handler
}

func newTestServer(t *testing.T) (*Server, *testHarness) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{ProfileRoot: root, AppDBPath: filepath.Join(root, "app.db"), LLMBaseURL: "http://127.0.0.1:11434"}

	appSQL, err := repository.OpenAppDB(cfg.AppDBPath)
	if err != nil {
		t.Fatalf("OpenAppDB: %v", err)
	}
	t.Cleanup(func() { appSQL.Close() })
	appRepo := repository.NewAppRepo(appSQL)

	llm, err := llmclient.New(cfg.LLMBaseURL, nil)
	if err != nil {
		t.Fatalf("llmclient.New: %v", err)
	}

	s, err := NewServer(cfg, appRepo, llm)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, &testHarness{router: NewRouter(s)}
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestCreateProfileThenListSymptomsEmpty(t *testing.T) {
	_, h := newTestServer(t)

	createRec := h.do(t, http.MethodPost, "/v1/profiles", createProfileRequest{Name: "Test", Password: "correct horse battery staple"})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", createRec.Code, createRec.Body.String())
	}
	var created createProfileResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if created.ProfileID == "" || created.RecoveryPhrase == "" {
		t.Fatal("expected a profile id and recovery phrase")
	}

	symRec := h.do(t, http.MethodGet, "/v1/profiles/"+created.ProfileID+"/symptoms", nil)
	if symRec.Code != http.StatusOK {
		t.Fatalf("symptoms status = %d, body=%s", symRec.Code, symRec.Body.String())
	}
}

func TestSessionlessRequestIsRejected(t *testing.T) {
	_, h := newTestServer(t)
	rec := h.do(t, http.MethodGet, "/v1/profiles/00000000-0000-0000-0000-000000000000/symptoms", nil)
	if rec.Code == http.StatusOK {
		t.Fatal("expected an error for a profile with no open session")
	}
}

func TestErrorBodyShape(t *testing.T) {
	_, h := newTestServer(t)
	rec := h.do(t, http.MethodPost, "/v1/profiles/00000000-0000-0000-0000-000000000000/erasure", eraseProfileRequest{
		ConfirmationText: "wrong phrase",
		Password:         "x",
	})
	if rec.Code == http.StatusOK {
		t.Fatal("expected an error status")
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body.Message == "" {
		t.Error("expected a non-empty error message")
	}
}
