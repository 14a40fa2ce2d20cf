package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sigvault/sigvault/fingerprint"
)

func newFingerprintCmd() *cobra.Command {
	var pageID, title, content, expect string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Compute the fingerprint of a contract",
		Long: `Compute the fingerprint of a contract from its page id, title and content.
With --expect the computed fingerprint is compared to the passed one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fp := fingerprint.Compute(pageID, title, content)
			if expect != "" {
				want, ok := fingerprint.Parse(expect)
				if !ok {
					return errors.Errorf("'%s' is not a valid fingerprint", expect)
				}
				if !fp.Equal(want) {
					return errors.Errorf("fingerprint mismatch: computed %s", fp)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fp.String())
			return err
		},
	}
	cmd.Flags().StringVar(&pageID, "page", "", "the page id")
	cmd.Flags().StringVar(&title, "title", "", "the contract title")
	cmd.Flags().StringVar(&content, "content", "", "the contract content")
	cmd.Flags().StringVar(&expect, "expect", "", "a fingerprint to verify")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}
