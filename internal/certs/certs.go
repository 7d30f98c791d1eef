// Package certs issues the self-signed TLS material launcherd serves with when
// TLS is enabled without configured certificate files. A local CA signs the
// server certificate so clients can pin ca.crt instead of skipping
// verification.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// File names inside a certificate directory.
const (
	CACertFile     = "ca.crt"
	CAKeyFile      = "ca.key"
	ServerCertFile = "server.crt"
	ServerKeyFile  = "server.key"
)

// Bundle holds a CA and the server certificate it signed, PEM encoded.
type Bundle struct {
	CACert     []byte
	CAKey      []byte
	ServerCert []byte
	ServerKey  []byte
}

// GeneratorConfig holds configuration for certificate generation.
type GeneratorConfig struct {
	CACommonName     string
	ServerCommonName string

	// CAValidDuration defaults to 10 years.
	CAValidDuration time.Duration

	// ServerValidDuration defaults to 1 year.
	ServerValidDuration time.Duration

	// DNSNames and IPAddresses are the server certificate SANs.
	DNSNames    []string
	IPAddresses []net.IP

	Organization string
}

// DefaultConfig returns the generator settings for a server reachable as
// host. Loopback names are always included.
func DefaultConfig(host string) GeneratorConfig {
	cfg := GeneratorConfig{
		CACommonName:        "launcherd-ca",
		ServerCommonName:    "launcherd",
		CAValidDuration:     10 * 365 * 24 * time.Hour,
		ServerValidDuration: 365 * 24 * time.Hour,
		DNSNames:            []string{"localhost"},
		IPAddresses:         []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
		Organization:        "launcherd",
	}

	switch ip := net.ParseIP(host); {
	case host == "" || host == "localhost" || (ip != nil && ip.IsUnspecified()):
	case ip != nil:
		cfg.IPAddresses = append(cfg.IPAddresses, ip)
	default:
		cfg.DNSNames = append(cfg.DNSNames, host)
	}
	if name, err := os.Hostname(); err == nil && name != "" && name != host {
		cfg.DNSNames = append(cfg.DNSNames, name)
	}
	return cfg
}

// GenerateCA generates a new Certificate Authority.
func GenerateCA(cfg GeneratorConfig) (cert, key []byte, err error) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	validDuration := cfg.CAValidDuration
	if validDuration == 0 {
		validDuration = 10 * 365 * 24 * time.Hour
	}

	template := &x509.Certificate{
		SerialNumber: newSerialNumber(),
		Subject: pkix.Name{
			CommonName:   cfg.CACommonName,
			Organization: []string{cfg.Organization},
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(validDuration),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	key, err = encodeKey(caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal CA key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), key, nil
}

// GenerateServerCert generates a server certificate signed by the CA.
func GenerateServerCert(caCert, caKey []byte, cfg GeneratorConfig) (cert, key []byte, err error) {
	ca, caPriv, err := parseCA(caCert, caKey)
	if err != nil {
		return nil, nil, err
	}

	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate server key: %w", err)
	}

	validDuration := cfg.ServerValidDuration
	if validDuration == 0 {
		validDuration = 365 * 24 * time.Hour
	}

	template := &x509.Certificate{
		SerialNumber: newSerialNumber(),
		Subject: pkix.Name{
			CommonName:   cfg.ServerCommonName,
			Organization: []string{cfg.Organization},
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(validDuration),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    cfg.DNSNames,
		IPAddresses: cfg.IPAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, ca, &serverKey.PublicKey, caPriv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create server certificate: %w", err)
	}

	key, err = encodeKey(serverKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal server key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), key, nil
}

// GenerateBundle generates a CA and a server certificate signed by it.
func GenerateBundle(cfg GeneratorConfig) (*Bundle, error) {
	b := &Bundle{}

	var err error
	if b.CACert, b.CAKey, err = GenerateCA(cfg); err != nil {
		return nil, fmt.Errorf("failed to generate CA: %w", err)
	}
	if b.ServerCert, b.ServerKey, err = GenerateServerCert(b.CACert, b.CAKey, cfg); err != nil {
		return nil, fmt.Errorf("failed to generate server cert: %w", err)
	}
	return b, nil
}

// Fingerprint calculates the SHA256 fingerprint of a PEM-encoded certificate.
func Fingerprint(certPEM []byte) (string, error) {
	cert, err := parseCert(certPEM)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:]), nil
}

// NeedsRenewal reports whether a certificate expires within threshold. An
// unparsable certificate always needs renewal.
func NeedsRenewal(certPEM []byte, threshold time.Duration) bool {
	cert, err := parseCert(certPEM)
	if err != nil {
		return true
	}
	return time.Until(cert.NotAfter) < threshold
}

// VerifyServer checks that a server certificate chains to the CA and is
// valid for server authentication.
func VerifyServer(certPEM, caCertPEM []byte) error {
	cert, err := parseCert(certPEM)
	if err != nil {
		return err
	}
	ca, err := parseCert(caCertPEM)
	if err != nil {
		return fmt.Errorf("CA: %w", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err = cert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	return err
}

// SaveToDir writes the bundle to dir. Keys are only readable by the owner.
func (b *Bundle) SaveToDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	files := map[string][]byte{
		CACertFile:     b.CACert,
		CAKeyFile:      b.CAKey,
		ServerCertFile: b.ServerCert,
		ServerKeyFile:  b.ServerKey,
	}
	for name, data := range files {
		if data == nil {
			continue
		}
		perm := os.FileMode(0644)
		if filepath.Ext(name) == ".key" {
			perm = 0600
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// LoadFromDir loads a bundle from dir. Missing files are left empty.
func LoadFromDir(dir string) (*Bundle, error) {
	b := &Bundle{}

	files := map[string]*[]byte{
		CACertFile:     &b.CACert,
		CAKeyFile:      &b.CAKey,
		ServerCertFile: &b.ServerCert,
		ServerKeyFile:  &b.ServerKey,
	}
	for name, dest := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		*dest = data
	}
	return b, nil
}

// EnsureServerCert makes sure dir holds a server certificate valid for at
// least renewBefore and returns the certificate and key paths. An existing CA
// is reused when only the server certificate needs replacing.
func EnsureServerCert(dir string, cfg GeneratorConfig, renewBefore time.Duration) (certFile, keyFile string, issued bool, err error) {
	certFile = filepath.Join(dir, ServerCertFile)
	keyFile = filepath.Join(dir, ServerKeyFile)

	b, err := LoadFromDir(dir)
	if err != nil {
		return "", "", false, err
	}

	if b.ServerCert != nil && b.ServerKey != nil && !NeedsRenewal(b.ServerCert, renewBefore) {
		if b.CACert == nil || VerifyServer(b.ServerCert, b.CACert) == nil {
			return certFile, keyFile, false, nil
		}
	}

	if b.CACert == nil || b.CAKey == nil || NeedsRenewal(b.CACert, renewBefore) {
		if b, err = GenerateBundle(cfg); err != nil {
			return "", "", false, err
		}
	} else {
		if b.ServerCert, b.ServerKey, err = GenerateServerCert(b.CACert, b.CAKey, cfg); err != nil {
			return "", "", false, err
		}
	}

	if err := b.SaveToDir(dir); err != nil {
		return "", "", false, err
	}
	return certFile, keyFile, true, nil
}

func newSerialNumber() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, _ := rand.Int(rand.Reader, max)
	return serial
}

func encodeKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

func parseCert(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func parseCA(caCertPEM, caKeyPEM []byte) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	caCert, err := parseCert(caCertPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("CA: %w", err)
	}

	keyBlock, _ := pem.Decode(caKeyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode CA key PEM")
	}
	caKey, err := x509.ParseECPrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CA key: %w", err)
	}
	return caCert, caKey, nil
}
