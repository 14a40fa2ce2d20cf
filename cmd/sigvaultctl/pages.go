package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sigvault/sigvault/api/adminapi"
	"github.com/sigvault/sigvault/fingerprint"
)

func newSignaturesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "signatures FINGERPRINT",
		Short: "List the signatures of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, ok := fingerprint.Parse(args[0])
			if !ok {
				return errors.Errorf("'%s' is not a valid fingerprint", args[0])
			}
			backs, err := c.storage()
			if err != nil {
				return err
			}
			entity, err := backs.Signatures.GetSignature(cmd.Context(), fp)
			if err != nil {
				return err
			}
			if entity == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no signatures")
				return err
			}
			return printYAML(cmd.OutOrStdout(), entity)
		},
	}
}

func newContractsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "contracts PAGE_ID",
		Short: "List the contracts of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			list, err := backs.Signatures.ListByPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), list)
		},
	}
}

func newTrashCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "trash PAGE_ID",
		Short: "Mark the contracts of a trashed page as deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			n, err := backs.Signatures.SetDeleted(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "marked %d contracts as deleted\n", n)
			return err
		},
	}
}

func newRestoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore PAGE_ID",
		Short: "Reactivate the contracts of a restored page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			n, err := backs.Signatures.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "restored %d contracts\n", n)
			return err
		},
	}
}

func newPurgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge PAGE_ID",
		Short: "Permanently delete all contracts, signatures and macro configurations of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			contracts, err := backs.Signatures.HardDelete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			configs, err := backs.MacroConfigs.DeletePage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(
				cmd.OutOrStdout(), "removed %d contracts and %d macro configurations\n", contracts, configs,
			)
			return err
		},
	}
}

func newCleanupCmd(c *cli) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge contracts that were deleted longer than the retention period ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = c.retentionDays
				if days <= 0 {
					days = adminapi.DefaultRetentionDays
				}
			}
			n, err := backs.Signatures.Cleanup(cmd.Context(), days)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d contracts\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention period in days; defaults to the configured one")
	return cmd
}
