package resource

import (
	"fmt"
	"time"
)

// ArtifactFacts are the facts available about one produced or
// downloaded artifact. Zero-valued fields are omitted from the
// composed metadata.
type ArtifactFacts struct {
	FileName            string
	Checksum            string
	CommonName          string
	Hosts               []string
	TimeUntilExpiration *time.Duration
}

// ComposeMetadata emits the ordered metadata entries for one artifact
// role. Order is fixed: file name, checksum, common name, hosts (input
// order), time until expiration.
func ComposeMetadata(role string, facts ArtifactFacts) []MetadataEntry {
	entries := []MetadataEntry{
		{Name: role + "_file_name", Value: facts.FileName},
		{Name: role + "_checksum", Value: facts.Checksum},
	}
	if facts.CommonName != "" {
		entries = append(entries, MetadataEntry{
			Name:  role + "_common_name",
			Value: facts.CommonName,
		})
	}
	for i, host := range facts.Hosts {
		entries = append(entries, MetadataEntry{
			Name:  fmt.Sprintf("%s_host_%d", role, i),
			Value: host,
		})
	}
	if facts.TimeUntilExpiration != nil {
		entries = append(entries, MetadataEntry{
			Name:  role + "_time_until_expiration",
			Value: facts.TimeUntilExpiration.String(),
		})
	}
	return entries
}
