package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/naeap/journal/internal/app"
	"github.com/naeap/journal/internal/config"
)

type Options struct {
	EnvFile string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.EnvFile, "env-file", "e", "", "dotenv file to load (default $NAEAP_ENV_FILE or .env)")
}

// load applies the flags before the environment is read.
func (o *Options) load() (*config.Config, error) {
	if o.EnvFile != "" {
		if err := os.Setenv("NAEAP_ENV_FILE", o.EnvFile); err != nil {
			return nil, err
		}
	}
	return config.Load(), nil
}

func newServeCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the public site and the admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

type SeedOptions struct {
	Options
	File    string
	Timeout time.Duration
}

func (o *SeedOptions) AddFlags(flagSet *pflag.FlagSet) {
	o.Options.AddFlags(flagSet)
	flagSet.StringVarP(&o.File, "file", "f", "", "YAML file with journals and announcements")
	flagSet.DurationVar(&o.Timeout, "timeout", time.Minute, "give up after this long")
}

func newSeedCommand() *cobra.Command {
	opts := &SeedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load journals and announcements from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.File == "" {
				return errors.New("--file is required")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Seed(ctx, opts.File)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d journals and %d announcements\n", res.Journals, res.Announcements)
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}
