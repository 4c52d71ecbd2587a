package httpapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ktiyab/coheara/internal/ca"
	"github.com/ktiyab/coheara/internal/cryptoutil"
	"github.com/ktiyab/coheara/internal/repository"
)

// certState holds the TLS identity the companion-pairing listener presents.
// It starts as an ephemeral bootstrap identity so the server can bind a
// port before any profile has unlocked, then is replaced by the opening
// profile's own local-CA-issued server cert, per spec.md §4.4's
// load_or_generate_ca.
type certState struct {
	mu   sync.RWMutex
	cert *tls.Certificate
}

func newBootstrapCertState() (*certState, error) {
	bundle, err := ca.GenerateCA()
	if err != nil {
		return nil, fmt.Errorf("httpapi: bootstrap ca: %w", err)
	}
	sc, err := bundle.IssueServerCert(localIP())
	if err != nil {
		return nil, fmt.Errorf("httpapi: bootstrap server cert: %w", err)
	}
	cert, err := toTLSCertificate(sc)
	if err != nil {
		return nil, err
	}
	return &certState{cert: cert}, nil
}

// GetCertificate satisfies tls.Config.GetCertificate.
func (c *certState) GetCertificate(_ *tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

func (c *certState) set(cert *tls.Certificate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = cert
}

func toTLSCertificate(sc *ca.ServerCert) (*tls.Certificate, error) {
	key, err := x509.ParseECPrivateKey(sc.KeyDER)
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse issued server key: %w", err)
	}
	return &tls.Certificate{
		Certificate: [][]byte{sc.CertDER, sc.CACertDER},
		PrivateKey:  key,
	}, nil
}

// localIP picks the first non-loopback IPv4 address to embed in issued
// server certs' SAN, falling back to loopback when the host has none
// (e.g. in a sandboxed test environment).
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

// loadOrGenerateCA returns the profile's persisted local CA bundle,
// generating and persisting one on first use. Idempotent, as spec.md §4.4
// requires: repeated calls against an already-provisioned profile return
// the same bundle rather than rotating it.
func loadOrGenerateCA(ctx context.Context, db *repository.DB, key [cryptoutil.KeySize]byte) (*ca.Bundle, error) {
	repo := repository.NewLocalCARepo(db)
	rec, err := repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("httpapi: loading local ca: %w", err)
	}
	if rec != nil {
		keyDER, err := cryptoutil.Decrypt(key, rec.KeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("httpapi: decrypting local ca key: %w", err)
		}
		return ca.LoadBundle(rec.CertDER, keyDER)
	}

	bundle, err := ca.GenerateCA()
	if err != nil {
		return nil, fmt.Errorf("httpapi: generating local ca: %w", err)
	}
	encryptedKey, err := cryptoutil.Encrypt(key, bundle.KeyDER)
	if err != nil {
		return nil, fmt.Errorf("httpapi: encrypting local ca key: %w", err)
	}
	if err := repo.Save(ctx, repository.LocalCARecord{
		CertDER:      bundle.CertDER,
		KeyEncrypted: encryptedKey,
		Fingerprint:  bundle.Fingerprint,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("httpapi: persisting local ca: %w", err)
	}
	return bundle, nil
}

// adoptSessionCA loads or generates the opening profile's local CA, issues
// a fresh short-lived server cert under it, and swaps it in as the
// identity the companion HTTPS listener presents. A device paired against
// one profile's CA only trusts that profile's issued leaf certs, so the
// most recently opened profile owns the serving identity until another
// profile opens in its place.
func (s *Server) adoptSessionCA(ctx context.Context, db *repository.DB, key [cryptoutil.KeySize]byte) error {
	bundle, err := loadOrGenerateCA(ctx, db, key)
	if err != nil {
		return err
	}
	sc, err := bundle.IssueServerCert(localIP())
	if err != nil {
		return fmt.Errorf("httpapi: issuing server cert: %w", err)
	}
	cert, err := toTLSCertificate(sc)
	if err != nil {
		return err
	}
	s.certs.set(cert)
	return nil
}
