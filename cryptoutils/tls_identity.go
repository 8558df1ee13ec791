package cryptoutils

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidTLSMaterial is returned when certificates or keys are missing,
// unreadable or do not parse.
var ErrInvalidTLSMaterial = errors.New("invalid TLS material")

// TLSMaterial points at the PEM files a TLS identity is loaded from.
type TLSMaterial struct {
	// CertFile and KeyFile hold the certificate chain and its private key.
	CertFile string
	KeyFile  string

	// CAFile holds the certificates peers are verified against. When set,
	// servers require client certificates signed by one of them.
	CAFile string

	// Ephemeral generates a self-signed certificate for Hosts instead of
	// reading CertFile/KeyFile. The certificate also becomes the only CA.
	Ephemeral bool
	Hosts     []string
}

// TLSIdentity is loaded TLS material shared by every socket factory built
// from it.
type TLSIdentity struct {
	Certificate tls.Certificate

	// CAs verifies peers; nil means the system roots are used by clients
	// and servers do not ask for client certificates.
	CAs *x509.CertPool
}

// HasCertificate reports whether the identity can authenticate itself.
func (id *TLSIdentity) HasCertificate() bool {
	return id != nil && len(id.Certificate.Certificate) > 0
}

// Fingerprint identifies the identity's certificate, or returns "" when
// there is none.
func (id *TLSIdentity) Fingerprint() string {
	if !id.HasCertificate() {
		return ""
	}
	leaf := id.Certificate.Leaf
	if leaf == nil {
		var err error
		leaf, err = x509.ParseCertificate(id.Certificate.Certificate[0])
		if err != nil {
			return ""
		}
	}
	fp, err := CertificateFingerprint(leaf)
	if err != nil {
		return ""
	}
	return fp
}

// LoadTLSIdentity reads or generates the identity described by m.
func LoadTLSIdentity(m TLSMaterial) (*TLSIdentity, error) {
	if m.Ephemeral {
		cert, err := RandomCert(m.Hosts...)
		if err != nil {
			return nil, fmt.Errorf("%w: could not generate certificate: %w", ErrInvalidTLSMaterial, err)
		}
		pool := x509.NewCertPool()
		pool.AddCert(cert.Leaf)
		return &TLSIdentity{Certificate: cert, CAs: pool}, nil
	}

	identity := &TLSIdentity{}

	switch {
	case m.CertFile != "" && m.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(m.CertFile, m.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: could not load key pair: %w", ErrInvalidTLSMaterial, err)
		}
		identity.Certificate = cert
	case m.CertFile != "" || m.KeyFile != "":
		return nil, fmt.Errorf("%w: certificate and key must be given together", ErrInvalidTLSMaterial)
	}

	if m.CAFile != "" {
		caPEM, err := os.ReadFile(m.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: could not read CA file: %w", ErrInvalidTLSMaterial, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("%w: no certificates in CA file %s", ErrInvalidTLSMaterial, m.CAFile)
		}
		identity.CAs = pool
	}

	return identity, nil
}
