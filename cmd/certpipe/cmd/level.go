package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/certpipe/pki"
	"github.com/jmcleod/certpipe/resource"
	"github.com/jmcleod/certpipe/storage/s3"
)

func newLevelCommand(level resource.CALevel) *cobra.Command {
	cmd := &cobra.Command{
		Use:   level.String(),
		Short: fmt.Sprintf("%s resource operations", level),
	}
	cmd.AddCommand(
		newCheckCommand(level),
		newInCommand(level),
		newOutCommand(level),
	)
	return cmd
}

// newMachine wires the state machine for one invocation from the
// request's source configuration. Nothing outlives the invocation.
func newMachine(level resource.CALevel, src resource.Source) (*resource.Machine, error) {
	store, err := s3.New(s3.Config{
		Endpoint:        src.Endpoint,
		Region:          src.RegionName,
		AccessKeyID:     src.AccessKeyID,
		SecretAccessKey: src.SecretAccessKey,
		Bucket:          src.BucketName,
		DisableSSL:      src.DisableSSL,
	})
	if err != nil {
		return nil, err
	}
	return resource.NewMachine(level, src, store, pki.NewCFSSL()), nil
}

func decodeRequest(cmd *cobra.Command, req any) error {
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeResponse(cmd *cobra.Command, resp any) error {
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

func newCheckCommand(level resource.CALevel) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the current bundle version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req resource.CheckRequest
			if err := decodeRequest(cmd, &req); err != nil {
				return err
			}
			m, err := newMachine(level, req.Source)
			if err != nil {
				return err
			}
			resp, err := m.Check(cmd.Context())
			if err != nil {
				return err
			}
			return writeResponse(cmd, resp)
		},
	}
}

func newInCommand(level resource.CALevel) *cobra.Command {
	return &cobra.Command{
		Use:   "in <destination-dir>",
		Short: "Fetch the artifacts matching the requested version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req resource.InRequest
			if err := decodeRequest(cmd, &req); err != nil {
				return err
			}
			m, err := newMachine(level, req.Source)
			if err != nil {
				return err
			}
			resp, err := m.In(cmd.Context(), req, args[0])
			if err != nil {
				return err
			}
			return writeResponse(cmd, resp)
		},
	}
}

func newOutCommand(level resource.CALevel) *cobra.Command {
	return &cobra.Command{
		Use:   "out <destination-dir>",
		Short: "Create or renew the bundle and publish the new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req resource.OutRequest
			if err := decodeRequest(cmd, &req); err != nil {
				return err
			}
			m, err := newMachine(level, req.Source)
			if err != nil {
				return err
			}
			resp, err := m.Out(cmd.Context(), req, args[0])
			if err != nil {
				return err
			}
			return writeResponse(cmd, resp)
		},
	}
}
