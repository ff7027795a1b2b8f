// Package resource implements the check/in/out pull-resource protocol
// for the PKI hierarchy: payload shapes, the metadata composer, and
// the level-parametrized lifecycle state machine.
package resource

import "github.com/jmcleod/certpipe/pki"

// Lifecycle actions accepted by Out.
const (
	ActionCreate = "create"
	ActionRenew  = "renew"
)

// Source is the resource configuration shared by every operation:
// object-store credentials and addressing, plus the leaf file prefix
// for leaf-level resources.
type Source struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	RegionName      string `json:"region_name"`
	Endpoint        string `json:"endpoint,omitempty"`
	DisableSSL      bool   `json:"disable_ssl,omitempty"`
	BucketName      string `json:"bucket_name"`
	Prefix          string `json:"prefix,omitempty"`
	LeafName        string `json:"leaf_name,omitempty"`
}

// Version identifies one state of a certificate/key bundle. Opaque and
// equality-comparable only; exactly one current value exists per bundle.
type Version struct {
	Checksum string `json:"checksum"`
}

// MetadataEntry is one name/value pair of a response's metadata list.
type MetadataEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CheckRequest is the payload of a check invocation. The pipeline's
// last-seen version is informational; the response always carries the
// single current version.
type CheckRequest struct {
	Source  Source   `json:"source"`
	Version *Version `json:"version,omitempty"`
}

// CheckResponse lists candidate versions; always exactly one element.
type CheckResponse []Version

// InParams selects which artifacts an In operation materializes.
// Absent flags keep their defaults: the certificate is saved, the
// private key and CA certificates are not.
type InParams struct {
	SaveCertificate               *bool `json:"save_certificate,omitempty"`
	SavePrivateKey                *bool `json:"save_private_key,omitempty"`
	SaveRootCACertificate         *bool `json:"save_root_ca_certificate,omitempty"`
	SaveIntermediateCACertificate *bool `json:"save_intermediate_ca_certificate,omitempty"`
	SaveToCASubdir                *bool `json:"save_to_ca_subdir,omitempty"`
}

func flag(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (p *InParams) saveCertificate() bool {
	if p == nil {
		return true
	}
	return flag(p.SaveCertificate, true)
}

func (p *InParams) savePrivateKey() bool {
	return p != nil && flag(p.SavePrivateKey, false)
}

func (p *InParams) saveRootCACertificate() bool {
	return p != nil && flag(p.SaveRootCACertificate, false)
}

func (p *InParams) saveIntermediateCACertificate() bool {
	return p != nil && flag(p.SaveIntermediateCACertificate, false)
}

func (p *InParams) saveToCASubdir() bool {
	return p != nil && flag(p.SaveToCASubdir, false)
}

// InRequest is the payload of an in invocation.
type InRequest struct {
	Source  Source    `json:"source"`
	Version Version   `json:"version"`
	Params  *InParams `json:"params,omitempty"`
}

// InResponse reports the matched version and metadata for every
// artifact actually downloaded.
type InResponse struct {
	Version  Version         `json:"version"`
	Metadata []MetadataEntry `json:"metadata"`
}

// KeyParams overrides the key algorithm and size of the level default.
type KeyParams struct {
	Algo string `json:"algo,omitempty"`
	Size int    `json:"size,omitempty"`
}

// CAParams overrides CA certificate properties.
type CAParams struct {
	Expiry string `json:"expiry,omitempty"`
}

// LeafParams overrides leaf certificate properties.
type LeafParams struct {
	Expiry string   `json:"expiry,omitempty"`
	Usages []string `json:"usages,omitempty"`
	Hosts  []string `json:"hosts,omitempty"`
}

// OutParams drives an out invocation. An absent action means create.
type OutParams struct {
	Action     string      `json:"action,omitempty"`
	CommonName string      `json:"CN,omitempty"`
	Key        *KeyParams  `json:"key,omitempty"`
	CA         *CAParams   `json:"ca,omitempty"`
	Leaf       *LeafParams `json:"leaf,omitempty"`
	Names      []pki.Name  `json:"names,omitempty"`
}

// OutRequest is the payload of an out invocation.
type OutRequest struct {
	Source Source    `json:"source"`
	Params OutParams `json:"params"`
}

// OutResponse reports the newly published version and the full
// metadata of the produced bundle.
type OutResponse struct {
	Version  Version         `json:"version"`
	Metadata []MetadataEntry `json:"metadata"`
}
