package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/schemata/config"
	"github.com/reoring/schemata/jsonschema"
	"github.com/reoring/schemata/notation"
	"github.com/reoring/schemata/notation/avro"
	"github.com/reoring/schemata/notation/builtin"
	"github.com/reoring/schemata/schema"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "schemata",
		Short:         "Inspect portable schemas and convert records between notations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		notationsCmd(opts),
		checkCmd(opts),
		convertCmd(opts),
		fingerprintCmd(opts),
		exportCmd(opts),
	)
	return root
}

func (o *rootOptions) init(stderr io.Writer) error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.cfg = cfg
	o.logger = cfg.NewLogger(stderr).With("component", "schemata")
	return nil
}

func (o *rootOptions) registry() (*notation.Registry, error) {
	return builtin.NewRegistry(o.cfg, o.logger)
}

func loadSchema(path string) (schema.DataSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := schema.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

func notationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notations",
		Short: "List the notations enabled by the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				n, _ := reg.Lookup(name)
				_, conv := reg.Converter(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tdefault=%s\tconverter=%t\n", name, n.DefaultSchema(), conv)
			}
			return nil
		},
	}
}

func checkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check TARGET CANDIDATE",
		Short: "Check that values of the CANDIDATE schema may flow where TARGET is declared",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := loadSchema(args[0])
			if err != nil {
				return err
			}
			candidate, err := loadSchema(args[1])
			if err != nil {
				return err
			}
			if err := schema.CheckAssignable(target, candidate); err != nil {
				opts.logger.Debug("not assignable", "target", target.String(), "candidate", candidate.String())
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "assignable")
			return nil
		},
	}
}

func fingerprintCmd(_ *rootOptions) *cobra.Command {
	var canonical bool
	cmd := &cobra.Command{
		Use:   "fingerprint SCHEMA",
		Short: "Print the 64-bit fingerprint of a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(args[0])
			if err != nil {
				return err
			}
			fp, err := schema.Fingerprint(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%016x\n", fp)
			if canonical {
				c, err := schema.Canonical(s)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(c))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "also print the canonical form")
	return cmd
}

func exportCmd(_ *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export SCHEMA",
		Short: "Print the native schema a notation derives (avro, jsonschema, yaml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(args[0])
			if err != nil {
				return err
			}
			var out []byte
			switch format {
			case "avro":
				avsc, err := avro.GenerateSchema(s)
				if err != nil {
					return err
				}
				out = []byte(avsc)
			case "jsonschema":
				out, err = gojson.MarshalIndent(jsonschema.FromDataSchema(s), "", "  ")
				if err != nil {
					return err
				}
			case "yaml":
				out, err = schema.MarshalDocument(s)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
			w := cmd.OutOrStdout()
			if _, err := w.Write(out); err != nil {
				return err
			}
			if len(out) > 0 && out[len(out)-1] != '\n' {
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "avro", "avro, jsonschema or yaml")
	return cmd
}
