package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// RandomCertValidity is how long certificates generated by RandomCert stay valid.
const RandomCertValidity = 365 * 24 * time.Hour

// RandomCert generates a random self-signed certificate usable for both
// server and client authentication. hosts become the certificate's SANs;
// entries parsing as IPs are added as IP SANs, everything else as DNS names.
// The certificate is its own trust anchor, so peers sharing it can verify
// each other, for example when a process talks to itself or in tests.
func RandomCert(hosts ...string) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "noc-monitor"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(RandomCertValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	certASN1, err := x509.CreateCertificate(rand.Reader, template, template,
		privateKey.Public(), privateKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certASN1})

	privkeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair(certPEM, pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privkeyBytes,
	}))
	if err != nil {
		return tls.Certificate{}, err
	}
	// X509KeyPair populates Leaf since go1.23
	if cert.Leaf == nil {
		cert.Leaf, err = x509.ParseCertificate(certASN1)
		if err != nil {
			return tls.Certificate{}, err
		}
	}
	return cert, nil
}

// CertificateFingerprint returns the hex SHA-256 of the certificate's
// subject public key info. It identifies a TLS identity in logs.
func CertificateFingerprint(cert *x509.Certificate) (string, error) {
	if cert == nil {
		return "", errors.New("nil certificate")
	}
	pubkeyDER, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	hash := sha256.Sum256(pubkeyDER)
	return hex.EncodeToString(hash[:]), nil
}
