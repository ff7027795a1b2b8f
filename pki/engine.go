// Package pki adapts the external certificate tool behind an Engine
// interface so the lifecycle code never depends on how certificates
// are actually issued. The shipped implementation spawns cfssl; tests
// substitute a fake.
package pki

import (
	"context"
	"errors"
	"time"
)

// ErrEngineFailed is returned when the underlying certificate tool
// exits nonzero or produces output the adapter cannot parse.
var ErrEngineFailed = errors.New("certificate tool invocation failed")

// KeySpec selects the key algorithm and size for a new key pair.
type KeySpec struct {
	Algorithm string `json:"algo"`
	Size      int    `json:"size"`
}

// Name is one subject name entry of a signing request, in the
// tool's CSR field naming.
type Name struct {
	C  string `json:"C,omitempty"`
	L  string `json:"L,omitempty"`
	O  string `json:"O,omitempty"`
	OU string `json:"OU,omitempty"`
	ST string `json:"ST,omitempty"`
}

// SigningRequest is the merged request spec for one level: the level's
// defaults overlaid with caller-supplied parameters.
type SigningRequest struct {
	CommonName string
	Key        KeySpec
	Expiry     string
	// PathLength constrains how many CA levels may hang below the
	// issued certificate. CA levels only.
	PathLength int
	// Usages and Hosts apply to leaf certificates only.
	Usages []string
	Hosts  []string
	Names  []Name
}

// KeyPairPaths locates a certificate and its private key on disk.
type KeyPairPaths struct {
	CertPath string
	KeyPath  string
}

// CertInfo is the subset of certificate facts the lifecycle reports.
type CertInfo struct {
	CommonName string
	Hosts      []string
	NotBefore  time.Time
	NotAfter   time.Time
}

// TimeUntilExpiration returns how long the certificate remains valid
// from the given instant.
func (ci CertInfo) TimeUntilExpiration(now time.Time) time.Duration {
	return ci.NotAfter.Sub(now)
}

// Engine abstracts certificate creation, renewal and inspection.
//
// Create operations generate a fresh key pair and write
// <filePrefix>.pem / <filePrefix>-key.pem into dir. Renew operations
// reuse the existing key material at pair.KeyPath and rewrite only
// pair.CertPath; for the intermediate and leaf levels a new signing
// request is regenerated from the existing certificate and key and
// re-signed by the parent bundle.
type Engine interface {
	CreateRootCA(ctx context.Context, req SigningRequest, dir, filePrefix string) (KeyPairPaths, error)
	CreateIntermediateCA(ctx context.Context, req SigningRequest, parent KeyPairPaths, dir, filePrefix string) (KeyPairPaths, error)
	CreateLeaf(ctx context.Context, req SigningRequest, parent KeyPairPaths, dir, filePrefix string) (KeyPairPaths, error)

	RenewRootCA(ctx context.Context, pair KeyPairPaths) error
	RenewIntermediateCA(ctx context.Context, req SigningRequest, pair, parent KeyPairPaths) error
	RenewLeaf(ctx context.Context, req SigningRequest, pair, parent KeyPairPaths) error

	// InspectCertificate parses the certificate at certPath.
	InspectCertificate(ctx context.Context, certPath string) (CertInfo, error)
}
