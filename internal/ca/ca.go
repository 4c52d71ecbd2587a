// Package ca manages Coheara's per-profile local certificate authority:
// a long-lived root used to issue the short-lived server certificate the
// HTTPS companion surface presents, plus export formats mobile devices can
// trust (.mobileconfig, PEM).
package ca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxCAValidity and MaxServerValidity enforce the Apple compliance
	// invariants: CA ≤ 825 days, server cert ≤ 398 days.
	MaxCAValidity     = 825 * 24 * time.Hour
	MaxServerValidity = 398 * 24 * time.Hour
)

// Bundle is a generated CA: its certificate and private key in DER form.
// The key is always encrypted at rest by the caller before persisting it;
// this package never writes to disk itself.
type Bundle struct {
	CertDER     []byte
	KeyDER      []byte
	Fingerprint string
	key         *ecdsa.PrivateKey
}

// ServerCert is a short-lived certificate issued under a Bundle.
type ServerCert struct {
	CertDER     []byte
	KeyDER      []byte
	CACertDER   []byte
	Fingerprint string
	NotAfter    time.Time
}

// GenerateCA creates a fresh ECDSA P-256 root, valid for MaxCAValidity.
func GenerateCA() (*Bundle, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ca.GenerateCA: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("ca.GenerateCA: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "Coheara Local CA", Organization: []string{"Coheara"}},
		NotBefore:    now.Add(-5 * time.Minute),
		NotAfter:     now.Add(MaxCAValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("ca.GenerateCA: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("ca.GenerateCA: %w", err)
	}

	return &Bundle{
		CertDER:     der,
		KeyDER:      keyDER,
		Fingerprint: Fingerprint(der),
		key:         key,
	}, nil
}

// LoadBundle reconstructs a Bundle from previously persisted DER bytes, the
// shape load_or_generate_ca uses once a local_ca row already exists.
func LoadBundle(certDER, keyDER []byte) (*Bundle, error) {
	key, err := x509.ParseECPrivateKey(keyDER)
	if err != nil {
		return nil, fmt.Errorf("ca.LoadBundle: %w", err)
	}
	return &Bundle{CertDER: certDER, KeyDER: keyDER, Fingerprint: Fingerprint(certDER), key: key}, nil
}

// IssueServerCert issues a fresh short-lived leaf cert for the local host,
// with SAN covering the local IP plus the well-known loopback aliases.
func (b *Bundle) IssueServerCert(localIP string) (*ServerCert, error) {
	caCert, err := x509.ParseCertificate(b.CertDER)
	if err != nil {
		return nil, fmt.Errorf("ca.IssueServerCert: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ca.IssueServerCert: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("ca.IssueServerCert: %w", err)
	}

	var ips []net.IP
	if ip := net.ParseIP(localIP); ip != nil {
		ips = append(ips, ip)
	}
	ips = append(ips, net.ParseIP("127.0.0.1"))

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "coheara.local"},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(MaxServerValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:              []string{"coheara.local", "localhost"},
		IPAddresses:           ips,
		AuthorityKeyId:        caCert.SubjectKeyId,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, b.key)
	if err != nil {
		return nil, fmt.Errorf("ca.IssueServerCert: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("ca.IssueServerCert: %w", err)
	}

	return &ServerCert{
		CertDER:     der,
		KeyDER:      keyDER,
		CACertDER:   b.CertDER,
		Fingerprint: Fingerprint(der),
		NotAfter:    tmpl.NotAfter,
	}, nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}

// Fingerprint returns the SHA-256 digest of DER-encoded cert bytes as
// colon-separated uppercase hex — exactly 95 characters (32 bytes, 31
// separators, 2 hex chars per byte: 64+31=95).
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// PEM wraps DER bytes as a standard 64-char-wrapped PEM certificate block.
func PEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// MobileConfig renders an iOS trust-profile property list embedding the
// CA certificate as base64 DER, with a fresh UUID per call for both
// PayloadUUID fields (the certificate payload's and the profile's own).
// PayloadIdentifier is the fixed string com.coheara.localca.
func MobileConfig(caDER []byte) []byte {
	payloadUUID := uuid.New().String()
	topUUID := uuid.New().String()
	b64 := pemBody(caDER)

	return []byte(fmt.Sprintf(mobileConfigTemplate, payloadUUID, b64, topUUID))
}

const mobileConfigTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>PayloadContent</key>
	<array>
		<dict>
			<key>PayloadType</key>
			<string>com.apple.security.root</string>
			<key>PayloadUUID</key>
			<string>%s</string>
			<key>PayloadCertificateFileName</key>
			<string>coheara-ca.cer</string>
			<key>PayloadContent</key>
			<data>
%s
			</data>
		</dict>
	</array>
	<key>PayloadDisplayName</key>
	<string>Coheara Local CA</string>
	<key>PayloadIdentifier</key>
	<string>com.coheara.localca</string>
	<key>PayloadType</key>
	<string>Configuration</string>
	<key>PayloadUUID</key>
	<string>%s</string>
	<key>PayloadVersion</key>
	<integer>1</integer>
</dict>
</plist>
`

// pemBody returns just the base64 body (no header/footer) of the PEM
// encoding of der, the form a mobileconfig's <data> element wants.
func pemBody(der []byte) string {
	full := string(PEM(der))
	lines := strings.Split(full, "\n")
	var body []string
	for _, l := range lines {
		if strings.HasPrefix(l, "-----") {
			continue
		}
		if l == "" {
			continue
		}
		body = append(body, l)
	}
	return strings.Join(body, "\n")
}
