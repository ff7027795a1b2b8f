package pki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
)

// Signing profile names used in generated cfssl signing configs.
const (
	profileIntermediate = "intermediate"
	profileLeaf         = "leaf"
)

// CFSSL is the Engine implementation that spawns the cfssl binary.
// JSON request specs are piped on stdin and the resulting PEM blocks
// parsed out of stdout; tool stderr is relayed to the diagnostic log.
type CFSSL struct {
	// Bin is the cfssl executable, resolved via PATH when bare.
	Bin string
	// WorkDir hosts a uuid-named scratch directory per invocation for
	// signing configs and intermediate CSR files.
	WorkDir string
}

var _ Engine = (*CFSSL)(nil)

// NewCFSSL returns a CFSSL engine with default binary and scratch
// locations.
func NewCFSSL() *CFSSL {
	return &CFSSL{Bin: "cfssl", WorkDir: os.TempDir()}
}

// ---------------------------------------------------------------------------
// Subprocess plumbing
// ---------------------------------------------------------------------------

func (c *CFSSL) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if stderr.Len() > 0 {
		slog.Debug("cfssl stderr", "args", args, "output", strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		return nil, fmt.Errorf("cfssl %s: %s: %w",
			args[0], strings.TrimSpace(stderr.String()), ErrEngineFailed)
	}
	return stdout.Bytes(), nil
}

func (c *CFSSL) scratchDir() (string, func(), error) {
	dir := filepath.Join(c.WorkDir, "cfssl-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// ---------------------------------------------------------------------------
// Request and output shapes (cfssl's JSON surface)
// ---------------------------------------------------------------------------

type csrConfig struct {
	CN    string    `json:"CN"`
	Key   KeySpec   `json:"key"`
	CA    *caConfig `json:"ca,omitempty"`
	Hosts []string  `json:"hosts,omitempty"`
	Names []Name    `json:"names"`
}

type caConfig struct {
	Expiry     string `json:"expiry"`
	PathLength int    `json:"pathlen"`
}

type signingConfig struct {
	Signing struct {
		Default  signingProfile            `json:"default"`
		Profiles map[string]signingProfile `json:"profiles"`
	} `json:"signing"`
}

type signingProfile struct {
	Expiry       string        `json:"expiry"`
	Usages       []string      `json:"usages,omitempty"`
	CAConstraint *caConstraint `json:"ca_constraint,omitempty"`
}

type caConstraint struct {
	IsCA       bool `json:"is_ca"`
	MaxPathLen int  `json:"max_path_len"`
}

type gencertResult struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
	CSR  string `json:"csr"`
}

func csrConfigFrom(req SigningRequest, isCA bool) csrConfig {
	cfg := csrConfig{
		CN:    req.CommonName,
		Key:   req.Key,
		Hosts: req.Hosts,
		Names: req.Names,
	}
	if cfg.Names == nil {
		cfg.Names = []Name{}
	}
	if isCA {
		cfg.CA = &caConfig{Expiry: req.Expiry, PathLength: req.PathLength}
	}
	return cfg
}

func signingConfigFor(profile string, req SigningRequest) signingConfig {
	p := signingProfile{Expiry: req.Expiry}
	switch profile {
	case profileIntermediate:
		p.Usages = []string{"cert sign", "crl sign", "signing", "digital signature", "key encipherment"}
		p.CAConstraint = &caConstraint{IsCA: true, MaxPathLen: req.PathLength}
	case profileLeaf:
		p.Usages = req.Usages
	}
	var cfg signingConfig
	cfg.Signing.Default = signingProfile{Expiry: req.Expiry}
	cfg.Signing.Profiles = map[string]signingProfile{profile: p}
	return cfg
}

// writeSigningConfig materializes the signing config into dir and
// returns its path.
func writeSigningConfig(dir, profile string, req SigningRequest) (string, error) {
	data, err := json.Marshal(signingConfigFor(profile, req))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "signing.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write signing config: %w", err)
	}
	return path, nil
}

// writeKeyPair splits a gencert result into the certificate and key
// files. The raw output buffer held the private key, so it is wiped
// once the files are on disk.
func writeKeyPair(out []byte, dir, filePrefix string) (KeyPairPaths, error) {
	defer memguard.WipeBytes(out)
	var res gencertResult
	if err := json.Unmarshal(out, &res); err != nil {
		return KeyPairPaths{}, fmt.Errorf("parse gencert output: %w", ErrEngineFailed)
	}
	if res.Cert == "" || res.Key == "" {
		return KeyPairPaths{}, fmt.Errorf("gencert output missing cert or key: %w", ErrEngineFailed)
	}
	pair := KeyPairPaths{
		CertPath: filepath.Join(dir, filePrefix+".pem"),
		KeyPath:  filepath.Join(dir, filePrefix+"-key.pem"),
	}
	if err := os.WriteFile(pair.CertPath, []byte(res.Cert), 0o644); err != nil {
		return KeyPairPaths{}, fmt.Errorf("write certificate: %w", err)
	}
	keyBytes := []byte(res.Key)
	err := os.WriteFile(pair.KeyPath, keyBytes, 0o600)
	memguard.WipeBytes(keyBytes)
	if err != nil {
		return KeyPairPaths{}, fmt.Errorf("write private key: %w", err)
	}
	return pair, nil
}

// writeCert extracts only the certificate from a cfssl result and
// writes it to certPath, leaving the existing key file untouched.
func writeCert(out []byte, certPath string) error {
	defer memguard.WipeBytes(out)
	var res gencertResult
	if err := json.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("parse cfssl output: %w", ErrEngineFailed)
	}
	if res.Cert == "" {
		return fmt.Errorf("cfssl output missing cert: %w", ErrEngineFailed)
	}
	if err := os.WriteFile(certPath, []byte(res.Cert), 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func (c *CFSSL) CreateRootCA(ctx context.Context, req SigningRequest, dir, filePrefix string) (KeyPairPaths, error) {
	csr, err := json.Marshal(csrConfigFrom(req, true))
	if err != nil {
		return KeyPairPaths{}, err
	}
	out, err := c.run(ctx, csr, "gencert", "-initca=true", "-loglevel=0", "-")
	if err != nil {
		return KeyPairPaths{}, err
	}
	return writeKeyPair(out, dir, filePrefix)
}

func (c *CFSSL) CreateIntermediateCA(ctx context.Context, req SigningRequest, parent KeyPairPaths, dir, filePrefix string) (KeyPairPaths, error) {
	return c.createSigned(ctx, req, parent, dir, filePrefix, profileIntermediate)
}

func (c *CFSSL) CreateLeaf(ctx context.Context, req SigningRequest, parent KeyPairPaths, dir, filePrefix string) (KeyPairPaths, error) {
	return c.createSigned(ctx, req, parent, dir, filePrefix, profileLeaf)
}

func (c *CFSSL) createSigned(ctx context.Context, req SigningRequest, parent KeyPairPaths, dir, filePrefix, profile string) (KeyPairPaths, error) {
	scratch, cleanup, err := c.scratchDir()
	if err != nil {
		return KeyPairPaths{}, err
	}
	defer cleanup()

	cfgPath, err := writeSigningConfig(scratch, profile, req)
	if err != nil {
		return KeyPairPaths{}, err
	}
	csr, err := json.Marshal(csrConfigFrom(req, profile == profileIntermediate))
	if err != nil {
		return KeyPairPaths{}, err
	}
	out, err := c.run(ctx, csr, "gencert",
		"-ca", parent.CertPath,
		"-ca-key", parent.KeyPath,
		"-config", cfgPath,
		"-profile", profile,
		"-loglevel=0",
		"-")
	if err != nil {
		return KeyPairPaths{}, err
	}
	return writeKeyPair(out, dir, filePrefix)
}

// ---------------------------------------------------------------------------
// Renew
// ---------------------------------------------------------------------------

func (c *CFSSL) RenewRootCA(ctx context.Context, pair KeyPairPaths) error {
	out, err := c.run(ctx, nil, "gencert",
		"-renewca",
		"-ca", pair.CertPath,
		"-ca-key", pair.KeyPath)
	if err != nil {
		return err
	}
	return writeCert(out, pair.CertPath)
}

func (c *CFSSL) RenewIntermediateCA(ctx context.Context, req SigningRequest, pair, parent KeyPairPaths) error {
	return c.renewSigned(ctx, req, pair, parent, profileIntermediate)
}

func (c *CFSSL) RenewLeaf(ctx context.Context, req SigningRequest, pair, parent KeyPairPaths) error {
	return c.renewSigned(ctx, req, pair, parent, profileLeaf)
}

// renewSigned regenerates a CSR from the existing certificate and key,
// then has the parent re-sign it. The private key on disk is reused.
func (c *CFSSL) renewSigned(ctx context.Context, req SigningRequest, pair, parent KeyPairPaths, profile string) error {
	scratch, cleanup, err := c.scratchDir()
	if err != nil {
		return err
	}
	defer cleanup()

	csrOut, err := c.run(ctx, nil, "gencsr", "-cert", pair.CertPath, "-key", pair.KeyPath)
	if err != nil {
		return err
	}
	var res gencertResult
	if err := json.Unmarshal(csrOut, &res); err != nil {
		memguard.WipeBytes(csrOut)
		return fmt.Errorf("parse gencsr output: %w", ErrEngineFailed)
	}
	memguard.WipeBytes(csrOut)
	if res.CSR == "" {
		return fmt.Errorf("gencsr output missing csr: %w", ErrEngineFailed)
	}
	csrPath := filepath.Join(scratch, "renew.csr")
	if err := os.WriteFile(csrPath, []byte(res.CSR), 0o600); err != nil {
		return fmt.Errorf("write csr: %w", err)
	}

	cfgPath, err := writeSigningConfig(scratch, profile, req)
	if err != nil {
		return err
	}
	signOut, err := c.run(ctx, nil, "sign",
		"-ca", parent.CertPath,
		"-ca-key", parent.KeyPath,
		"-config", cfgPath,
		"-profile", profile,
		csrPath)
	if err != nil {
		return err
	}
	return writeCert(signOut, pair.CertPath)
}

// ---------------------------------------------------------------------------
// Inspect
// ---------------------------------------------------------------------------

type certinfoResult struct {
	Subject struct {
		CommonName string `json:"common_name"`
	} `json:"subject"`
	SANs      []string  `json:"sans"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

func parseCertInfo(out []byte) (CertInfo, error) {
	var res certinfoResult
	if err := json.Unmarshal(out, &res); err != nil {
		return CertInfo{}, fmt.Errorf("parse certinfo output: %w", ErrEngineFailed)
	}
	return CertInfo{
		CommonName: res.Subject.CommonName,
		Hosts:      res.SANs,
		NotBefore:  res.NotBefore,
		NotAfter:   res.NotAfter,
	}, nil
}

func (c *CFSSL) InspectCertificate(ctx context.Context, certPath string) (CertInfo, error) {
	out, err := c.run(ctx, nil, "certinfo", "-cert", certPath)
	if err != nil {
		return CertInfo{}, err
	}
	return parseCertInfo(out)
}
