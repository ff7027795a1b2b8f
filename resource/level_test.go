package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/certpipe/pki"
)

func TestFilePrefix(t *testing.T) {
	prefix, err := RootCA.filePrefix(Source{})
	require.NoError(t, err)
	assert.Equal(t, "root-ca", prefix)

	prefix, err = IntermediateCA.filePrefix(Source{})
	require.NoError(t, err)
	assert.Equal(t, "intermediate-ca", prefix)

	prefix, err = Leaf.filePrefix(Source{LeafName: "svc"})
	require.NoError(t, err)
	assert.Equal(t, "svc", prefix)

	_, err = Leaf.filePrefix(Source{})
	assert.ErrorIs(t, err, errLeafNameRequired)
}

func TestSigningRequest_Defaults(t *testing.T) {
	req := RootCA.signingRequest(OutParams{CommonName: "Root CA"})
	assert.Equal(t, "Root CA", req.CommonName)
	assert.Equal(t, pki.KeySpec{Algorithm: "ecdsa", Size: 256}, req.Key)
	assert.Equal(t, "87600h", req.Expiry)
	assert.Equal(t, 1, req.PathLength)

	req = IntermediateCA.signingRequest(OutParams{})
	assert.Equal(t, "43800h", req.Expiry)
	assert.Equal(t, 0, req.PathLength)

	req = Leaf.signingRequest(OutParams{})
	assert.Equal(t, "8760h", req.Expiry)
	assert.Equal(t, []string{"signing", "key encipherment", "server auth", "client auth"}, req.Usages)
}

func TestSigningRequest_Overrides(t *testing.T) {
	req := RootCA.signingRequest(OutParams{
		CommonName: "Root CA",
		Key:        &KeyParams{Algo: "rsa", Size: 4096},
		CA:         &CAParams{Expiry: "17520h"},
		Names:      []pki.Name{{C: "US", O: "Example"}},
	})
	assert.Equal(t, pki.KeySpec{Algorithm: "rsa", Size: 4096}, req.Key)
	assert.Equal(t, "17520h", req.Expiry)
	assert.Equal(t, []pki.Name{{C: "US", O: "Example"}}, req.Names)

	req = Leaf.signingRequest(OutParams{
		Leaf: &LeafParams{
			Expiry: "720h",
			Usages: []string{"server auth"},
			Hosts:  []string{"a.example.com"},
		},
	})
	assert.Equal(t, "720h", req.Expiry)
	assert.Equal(t, []string{"server auth"}, req.Usages)
	assert.Equal(t, []string{"a.example.com"}, req.Hosts)
}

func TestSigningRequest_PartialKeyOverride(t *testing.T) {
	req := RootCA.signingRequest(OutParams{Key: &KeyParams{Size: 384}})
	assert.Equal(t, pki.KeySpec{Algorithm: "ecdsa", Size: 384}, req.Key)
}

func TestRoles(t *testing.T) {
	assert.Equal(t, "root_ca_certificate", RootCA.certRole())
	assert.Equal(t, "root_ca_private_key", RootCA.keyRole())
	assert.Equal(t, "intermediate_ca_certificate", IntermediateCA.certRole())
	assert.Equal(t, "leaf_certificate", Leaf.certRole())
	assert.Equal(t, "leaf_private_key", Leaf.keyRole())
}

func TestParent(t *testing.T) {
	_, ok := RootCA.parent()
	assert.False(t, ok)

	p, ok := IntermediateCA.parent()
	assert.True(t, ok)
	assert.Equal(t, RootCA, p)

	p, ok = Leaf.parent()
	assert.True(t, ok)
	assert.Equal(t, IntermediateCA, p)
}
