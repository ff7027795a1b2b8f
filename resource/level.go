package resource

import (
	"errors"
	"fmt"

	"github.com/jmcleod/certpipe/pki"
)

// CALevel identifies one level of the certificate hierarchy.
type CALevel int

const (
	RootCA CALevel = iota
	IntermediateCA
	Leaf
)

// File name prefixes for the singleton levels; leaf prefixes come from
// the source's leaf_name.
const (
	rootCAFilePrefix         = "root-ca"
	intermediateCAFilePrefix = "intermediate-ca"
)

// caSubdirName is the sub-directory leaf In may bundle CA certificates
// into.
const caSubdirName = "ca"

// errLeafNameRequired is returned when a leaf operation runs without a
// leaf_name in the source.
var errLeafNameRequired = errors.New("source: leaf_name is required for leaf resources")

func (l CALevel) String() string {
	switch l {
	case RootCA:
		return "root-ca"
	case IntermediateCA:
		return "intermediate-ca"
	case Leaf:
		return "leaf"
	}
	return fmt.Sprintf("CALevel(%d)", int(l))
}

// filePrefix resolves the level's artifact file prefix against a
// source. Certificates are <prefix>.pem, keys <prefix>-key.pem.
func (l CALevel) filePrefix(src Source) (string, error) {
	switch l {
	case RootCA:
		return rootCAFilePrefix, nil
	case IntermediateCA:
		return intermediateCAFilePrefix, nil
	default:
		if src.LeafName == "" {
			return "", errLeafNameRequired
		}
		return src.LeafName, nil
	}
}

// certRole and keyRole are the metadata role names for the level's two
// artifacts.
func (l CALevel) certRole() string {
	switch l {
	case RootCA:
		return "root_ca_certificate"
	case IntermediateCA:
		return "intermediate_ca_certificate"
	default:
		return "leaf_certificate"
	}
}

func (l CALevel) keyRole() string {
	switch l {
	case RootCA:
		return "root_ca_private_key"
	case IntermediateCA:
		return "intermediate_ca_private_key"
	default:
		return "leaf_private_key"
	}
}

// parent returns the level's signing authority, if it has one.
func (l CALevel) parent() (CALevel, bool) {
	switch l {
	case IntermediateCA:
		return RootCA, true
	case Leaf:
		return IntermediateCA, true
	default:
		return 0, false
	}
}

// Level defaults for signing requests. Overridable per field through
// OutParams.
var levelDefaults = map[CALevel]pki.SigningRequest{
	RootCA: {
		Key:        pki.KeySpec{Algorithm: "ecdsa", Size: 256},
		Expiry:     "87600h",
		PathLength: 1,
	},
	IntermediateCA: {
		Key:        pki.KeySpec{Algorithm: "ecdsa", Size: 256},
		Expiry:     "43800h",
		PathLength: 0,
	},
	Leaf: {
		Key:    pki.KeySpec{Algorithm: "ecdsa", Size: 256},
		Expiry: "8760h",
		Usages: []string{"signing", "key encipherment", "server auth", "client auth"},
	},
}

// signingRequest merges the level's defaults with caller overrides.
func (l CALevel) signingRequest(p OutParams) pki.SigningRequest {
	req := levelDefaults[l]
	req.CommonName = p.CommonName
	if p.Key != nil {
		if p.Key.Algo != "" {
			req.Key.Algorithm = p.Key.Algo
		}
		if p.Key.Size != 0 {
			req.Key.Size = p.Key.Size
		}
	}
	if l != Leaf && p.CA != nil && p.CA.Expiry != "" {
		req.Expiry = p.CA.Expiry
	}
	if l == Leaf && p.Leaf != nil {
		if p.Leaf.Expiry != "" {
			req.Expiry = p.Leaf.Expiry
		}
		if len(p.Leaf.Usages) > 0 {
			req.Usages = p.Leaf.Usages
		}
		req.Hosts = p.Leaf.Hosts
	}
	if p.Names != nil {
		req.Names = p.Names
	}
	return req
}
