package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sigvault/sigvault/cmd/sigvault/config"
	"github.com/sigvault/sigvault/storage/model"
)

// opener opens the storage backends; the returned func closes them
type opener func(configFile string) (model.Backends, func() error, error)

type cli struct {
	configFile    string
	retentionDays int
	open          opener
	backends      *model.Backends
	closeBackends func() error
}

func openFromConfig(configFile string) (model.Backends, func() error, error) {
	config.Load(configFile)
	s, err := config.OpenStorage(config.Get())
	if err != nil {
		return model.Backends{}, nil, err
	}
	return s.Backends(), s.Close, nil
}

// storage lazily opens the storage backends; commands that do not touch the
// database never load the config
func (c *cli) storage() (model.Backends, error) {
	if c.backends != nil {
		return *c.backends, nil
	}
	backs, closer, err := c.open(c.configFile)
	if err != nil {
		return model.Backends{}, err
	}
	c.backends = &backs
	c.closeBackends = closer
	if c.retentionDays == 0 {
		c.retentionDays = config.Get().Retention.Days
	}
	return backs, nil
}

func (c *cli) close() error {
	if c.closeBackends == nil {
		return nil
	}
	return c.closeBackends()
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "sigvaultctl",
		Short:         "sigvaultctl can help you manage your SigVault",
		Long:          "sigvaultctl can help you manage your SigVault",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "config.yaml", "the config file to use")
	root.AddCommand(
		newFingerprintCmd(),
		newSignaturesCmd(c),
		newContractsCmd(c),
		newTrashCmd(c),
		newRestoreCmd(c),
		newPurgeCmd(c),
		newCleanupCmd(c),
		newUsersCmd(c),
	)
	return root
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	if err := newRootCmd(&cli{open: openFromConfig}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
