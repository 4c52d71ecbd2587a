package ca

import (
	"bytes"
	"testing"
)

func TestIssueServerCert(t *testing.T) {
	root, err := GenerateCA()
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}

	server, err := root.IssueServerCert("192.168.1.42")
	if err != nil {
		t.Fatalf("IssueServerCert: %v", err)
	}

	if bytes.Equal(server.CertDER, root.CertDER) {
		t.Fatal("server cert must differ from CA cert")
	}
	if len(server.Fingerprint) != 95 {
		t.Fatalf("fingerprint length = %d, want 95", len(server.Fingerprint))
	}
	if !bytes.Equal(server.CACertDER, root.CertDER) {
		t.Fatal("server.CACertDER must equal the issuing CA's cert DER")
	}
}

func TestFingerprintLength(t *testing.T) {
	root, err := GenerateCA()
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	if len(root.Fingerprint) != 95 {
		t.Fatalf("fingerprint length = %d, want 95", len(root.Fingerprint))
	}
}

func TestLoadBundleRoundTrip(t *testing.T) {
	root, err := GenerateCA()
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	loaded, err := LoadBundle(root.CertDER, root.KeyDER)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if _, err := loaded.IssueServerCert("127.0.0.1"); err != nil {
		t.Fatalf("IssueServerCert on loaded bundle: %v", err)
	}
}

func TestMobileConfigContainsCertData(t *testing.T) {
	root, err := GenerateCA()
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	mc := MobileConfig(root.CertDER)
	if !bytes.Contains(mc, []byte("com.apple.security.root")) {
		t.Fatal("mobileconfig missing PayloadType")
	}
	if bytes.Contains(mc, root.KeyDER) {
		t.Fatal("mobileconfig must never embed the private key")
	}
}
