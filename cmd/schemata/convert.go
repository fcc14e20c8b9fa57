package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	schemata "github.com/reoring/schemata"
	"github.com/reoring/schemata/schema"
)

type convertOptions struct {
	schemaPath string
	outSchema  string
	from       string
	to         string
	in         string
	out        string
}

func convertCmd(root *rootOptions) *cobra.Command {
	o := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Read one record in one notation and write it in another",
		Long: "Reads one record with --from under --schema and writes it with --to.\n" +
			"With --out-schema the record is rebound to that schema first, which must\n" +
			"be assignable from --schema.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(root, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.schemaPath, "schema", "s", "", "schema document of the input record")
	f.StringVar(&o.outSchema, "out-schema", "", "schema document of the output record (default: --schema)")
	f.StringVar(&o.from, "from", "json", "notation of the input")
	f.StringVar(&o.to, "to", "avro", "notation of the output")
	f.StringVarP(&o.in, "in", "i", "-", "input file, - for stdin")
	f.StringVarP(&o.out, "out", "o", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func (o *convertOptions) run(root *rootOptions, stdin io.Reader, stdout io.Writer) error {
	in, err := loadSchema(o.schemaPath)
	if err != nil {
		return err
	}
	target := in
	if o.outSchema != "" {
		if target, err = loadSchema(o.outSchema); err != nil {
			return err
		}
		if err := schema.CheckAssignable(target, in); err != nil {
			return err
		}
	}

	reg, err := root.registry()
	if err != nil {
		return err
	}
	reader, err := reg.SerdeFor(o.from, in, false)
	if err != nil {
		return err
	}
	writer, err := reg.SerdeFor(o.to, target, false)
	if err != nil {
		return err
	}

	data, err := readInput(o.in, stdin)
	if err != nil {
		return err
	}
	obj, err := reader.Deserialize(data)
	if err != nil {
		return recordError(root, "read", err)
	}
	if target != in {
		if obj, err = reg.Convert(obj, o.to, target); err != nil {
			return recordError(root, "rebind", err)
		}
	}
	b, err := writer.Serialize(obj)
	if err != nil {
		return recordError(root, "write", err)
	}
	root.logger.Debug("record converted", "from", o.from, "to", o.to, "bytes_in", len(data), "bytes_out", len(b))
	return writeOutput(o.out, stdout, b)
}

func recordError(root *rootOptions, stage string, err error) error {
	if iss, ok := schemata.AsIssues(err); ok {
		for _, it := range iss {
			root.logger.Warn("record rejected", "stage", stage, "path", it.Path, "code", it.Code, "message", it.Message)
		}
	}
	return fmt.Errorf("%s record: %w", stage, err)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, b []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
