package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmcleod/certpipe/checksum"
	"github.com/jmcleod/certpipe/pki"
	"github.com/jmcleod/certpipe/storage"
)

var (
	// ErrVersionUnavailable is returned by In when the requested version
	// does not equal the currently computed bundle version. No history
	// is kept, so there is nothing else to serve.
	ErrVersionUnavailable = errors.New("requested version is unavailable")

	// ErrMissingDependency is returned by Out when the parent level's
	// bundle is absent or cannot be integrity-verified.
	ErrMissingDependency = errors.New("parent bundle is unavailable")

	// ErrInvalidAction is returned by Out for actions other than create
	// and renew.
	ErrInvalidAction = errors.New(`action must be "create" or "renew"`)
)

// Machine drives the check/in/out lifecycle for one CA level. It holds
// no state between operations; every call re-derives its view of the
// current version from the object store.
type Machine struct {
	level    CALevel
	source   Source
	store    storage.ObjectStore
	verifier storage.Verifier
	engine   pki.Engine
	now      func() time.Time
}

// NewMachine builds the state machine for a level over the given
// collaborators.
func NewMachine(level CALevel, source Source, store storage.ObjectStore, engine pki.Engine) *Machine {
	return &Machine{
		level:    level,
		source:   source,
		store:    store,
		verifier: storage.Verifier{Store: store},
		engine:   engine,
		now:      time.Now,
	}
}

// bundle locates one level's artifact pair: local file names and
// remote object keys.
type bundle struct {
	certName string
	keyName  string
	certKey  string
	keyKey   string
}

func (m *Machine) bundleFor(level CALevel) (bundle, error) {
	prefix, err := level.filePrefix(m.source)
	if err != nil {
		return bundle{}, err
	}
	certName := prefix + ".pem"
	keyName := prefix + "-key.pem"
	return bundle{
		certName: certName,
		keyName:  keyName,
		certKey:  storage.ObjectKey(m.source.Prefix, certName),
		keyKey:   storage.ObjectKey(m.source.Prefix, keyName),
	}, nil
}

// remoteChecksums fetches the stored checksums of both artifacts.
func (m *Machine) remoteChecksums(ctx context.Context, b bundle) (certSum, keySum string, err error) {
	certSum, err = m.store.FetchChecksum(ctx, b.certKey)
	if err != nil {
		return "", "", err
	}
	keySum, err = m.store.FetchChecksum(ctx, b.keyKey)
	if err != nil {
		return "", "", err
	}
	slog.Info("remote artifact checksums",
		"level", m.level, "certificate", certSum, "private_key", keySum)
	return certSum, keySum, nil
}

// Check computes the current bundle version from the stored artifact
// checksums and reports it as the single candidate version.
func (m *Machine) Check(ctx context.Context) (CheckResponse, error) {
	b, err := m.bundleFor(m.level)
	if err != nil {
		return nil, err
	}
	certSum, keySum, err := m.remoteChecksums(ctx, b)
	if err != nil {
		return nil, err
	}
	version := checksum.BundleVersion(certSum, keySum)
	slog.Info("current bundle version", "level", m.level, "version", version)
	return CheckResponse{{Checksum: version}}, nil
}

// In validates the requested version against the store's current state
// and downloads the selected artifacts into destDir. Nothing is
// downloaded when the version does not match.
func (m *Machine) In(ctx context.Context, req InRequest, destDir string) (InResponse, error) {
	b, err := m.bundleFor(m.level)
	if err != nil {
		return InResponse{}, err
	}
	certSum, keySum, err := m.remoteChecksums(ctx, b)
	if err != nil {
		return InResponse{}, err
	}
	current := checksum.BundleVersion(certSum, keySum)
	if req.Version.Checksum != current {
		return InResponse{}, fmt.Errorf("requested %q, current %q: %w",
			req.Version.Checksum, current, ErrVersionUnavailable)
	}

	resp := InResponse{Version: Version{Checksum: current}}
	p := req.Params
	if p.saveCertificate() {
		dest := filepath.Join(destDir, b.certName)
		if err := m.verifier.DownloadAndVerify(ctx, b.certKey, certSum, dest); err != nil {
			return InResponse{}, err
		}
		resp.Metadata = append(resp.Metadata, ComposeMetadata(m.level.certRole(), ArtifactFacts{
			FileName: b.certName,
			Checksum: certSum,
		})...)
	}
	if p.savePrivateKey() {
		dest := filepath.Join(destDir, b.keyName)
		if err := m.verifier.DownloadAndVerify(ctx, b.keyKey, keySum, dest); err != nil {
			return InResponse{}, err
		}
		resp.Metadata = append(resp.Metadata, ComposeMetadata(m.level.keyRole(), ArtifactFacts{
			FileName: b.keyName,
			Checksum: keySum,
		})...)
	}
	if m.level == Leaf {
		if p.saveRootCACertificate() {
			if err := m.fetchCACertificate(ctx, RootCA, destDir, p.saveToCASubdir(), &resp); err != nil {
				return InResponse{}, err
			}
		}
		if p.saveIntermediateCACertificate() {
			if err := m.fetchCACertificate(ctx, IntermediateCA, destDir, p.saveToCASubdir(), &resp); err != nil {
				return InResponse{}, err
			}
		}
	}
	return resp, nil
}

// fetchCACertificate downloads one CA level's certificate (never its
// key) alongside a leaf In, into destDir or its ca/ sub-directory.
func (m *Machine) fetchCACertificate(ctx context.Context, level CALevel, destDir string, toSubdir bool, resp *InResponse) error {
	b, err := m.bundleFor(level)
	if err != nil {
		return err
	}
	sum, err := m.store.FetchChecksum(ctx, b.certKey)
	if err != nil {
		return err
	}
	dir := destDir
	if toSubdir {
		dir = filepath.Join(destDir, caSubdirName)
	}
	if err := m.verifier.DownloadAndVerify(ctx, b.certKey, sum, filepath.Join(dir, b.certName)); err != nil {
		return err
	}
	resp.Metadata = append(resp.Metadata, ComposeMetadata(level.certRole(), ArtifactFacts{
		FileName: b.certName,
		Checksum: sum,
	})...)
	return nil
}

// Out produces or renews the level's bundle in destDir, publishes both
// artifacts, and reports the new version with full metadata.
func (m *Machine) Out(ctx context.Context, req OutRequest, destDir string) (OutResponse, error) {
	b, err := m.bundleFor(m.level)
	if err != nil {
		return OutResponse{}, err
	}
	prefix, err := m.level.filePrefix(m.source)
	if err != nil {
		return OutResponse{}, err
	}
	pair := pki.KeyPairPaths{
		CertPath: filepath.Join(destDir, b.certName),
		KeyPath:  filepath.Join(destDir, b.keyName),
	}

	// The parent bundle is the signing authority for both create and
	// renew; it must already be present and verifiable.
	var parent pki.KeyPairPaths
	if parentLevel, ok := m.level.parent(); ok {
		parent, err = m.fetchParentBundle(ctx, parentLevel, destDir)
		if err != nil {
			return OutResponse{}, fmt.Errorf("%s: %v: %w", parentLevel, err, ErrMissingDependency)
		}
	}

	action := req.Params.Action
	if action == "" {
		action = ActionCreate
	}
	spec := m.level.signingRequest(req.Params)

	switch action {
	case ActionCreate:
		// Existing remote state is deliberately ignored.
		switch m.level {
		case RootCA:
			_, err = m.engine.CreateRootCA(ctx, spec, destDir, prefix)
		case IntermediateCA:
			_, err = m.engine.CreateIntermediateCA(ctx, spec, parent, destDir, prefix)
		case Leaf:
			_, err = m.engine.CreateLeaf(ctx, spec, parent, destDir, prefix)
		}
		if err != nil {
			return OutResponse{}, err
		}
	case ActionRenew:
		if err := m.downloadOwnBundle(ctx, b, pair); err != nil {
			return OutResponse{}, err
		}
		if err := m.logPreRenewalDates(ctx, pair.CertPath); err != nil {
			return OutResponse{}, err
		}
		switch m.level {
		case RootCA:
			err = m.engine.RenewRootCA(ctx, pair)
		case IntermediateCA:
			err = m.engine.RenewIntermediateCA(ctx, spec, pair, parent)
		case Leaf:
			err = m.engine.RenewLeaf(ctx, spec, pair, parent)
		}
		if err != nil {
			return OutResponse{}, err
		}
	default:
		return OutResponse{}, fmt.Errorf("%q: %w", action, ErrInvalidAction)
	}

	info, err := m.engine.InspectCertificate(ctx, pair.CertPath)
	if err != nil {
		return OutResponse{}, err
	}
	certSum, err := m.verifier.UploadAndTag(ctx, b.certKey, pair.CertPath)
	if err != nil {
		return OutResponse{}, err
	}
	keySum, err := m.verifier.UploadAndTag(ctx, b.keyKey, pair.KeyPath)
	if err != nil {
		return OutResponse{}, err
	}
	version := checksum.BundleVersion(certSum, keySum)
	slog.Info("published bundle version", "level", m.level, "version", version)

	ttl := info.TimeUntilExpiration(m.now())
	certFacts := ArtifactFacts{
		FileName:            b.certName,
		Checksum:            certSum,
		CommonName:          info.CommonName,
		TimeUntilExpiration: &ttl,
	}
	if m.level == Leaf {
		certFacts.Hosts = info.Hosts
	}
	metadata := ComposeMetadata(m.level.certRole(), certFacts)
	metadata = append(metadata, ComposeMetadata(m.level.keyRole(), ArtifactFacts{
		FileName: b.keyName,
		Checksum: keySum,
	})...)

	return OutResponse{Version: Version{Checksum: version}, Metadata: metadata}, nil
}

// fetchParentBundle downloads and verifies the parent level's
// certificate and key into destDir so the engine can sign with them.
func (m *Machine) fetchParentBundle(ctx context.Context, level CALevel, destDir string) (pki.KeyPairPaths, error) {
	b, err := m.bundleFor(level)
	if err != nil {
		return pki.KeyPairPaths{}, err
	}
	certSum, keySum, err := m.remoteChecksums(ctx, b)
	if err != nil {
		return pki.KeyPairPaths{}, err
	}
	pair := pki.KeyPairPaths{
		CertPath: filepath.Join(destDir, b.certName),
		KeyPath:  filepath.Join(destDir, b.keyName),
	}
	if err := m.verifier.DownloadAndVerify(ctx, b.certKey, certSum, pair.CertPath); err != nil {
		return pki.KeyPairPaths{}, err
	}
	if err := m.verifier.DownloadAndVerify(ctx, b.keyKey, keySum, pair.KeyPath); err != nil {
		return pki.KeyPairPaths{}, err
	}
	return pair, nil
}

// downloadOwnBundle materializes the level's current bundle before a
// renewal. Both artifacts must download and verify.
func (m *Machine) downloadOwnBundle(ctx context.Context, b bundle, pair pki.KeyPairPaths) error {
	certSum, keySum, err := m.remoteChecksums(ctx, b)
	if err != nil {
		return err
	}
	if err := m.verifier.DownloadAndVerify(ctx, b.certKey, certSum, pair.CertPath); err != nil {
		return err
	}
	return m.verifier.DownloadAndVerify(ctx, b.keyKey, keySum, pair.KeyPath)
}

// logPreRenewalDates records the outgoing certificate's validity
// window. Diagnostics only; the values do not feed the response.
func (m *Machine) logPreRenewalDates(ctx context.Context, certPath string) error {
	info, err := m.engine.InspectCertificate(ctx, certPath)
	if err != nil {
		return err
	}
	slog.Info("renewing certificate",
		"level", m.level,
		"common_name", info.CommonName,
		"not_before", info.NotBefore,
		"not_after", info.NotAfter,
		"time_until_expiration", info.TimeUntilExpiration(m.now()))
	return nil
}
