package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/civu/pkg/persist"
	"github.com/Sumatoshi-tech/civu/pkg/report"
)

// Sentinel errors.
var (
	// ErrInvalidDocuments is returned when at least one document fails validation.
	ErrInvalidDocuments = errors.New("invalid result documents")
	// ErrNoDocuments is returned when no document path is given.
	ErrNoDocuments = errors.New("at least one document is required")
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var (
		noColor     bool
		printSchema bool
		errorsOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "validate [document...]",
		Short: "Check result documents against the civu JSON schema",
		Long: `Validate JSON, YAML or LZ4-compressed result documents against the embedded
schema and list every violation. With --schema the schema itself is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if printSchema {
				_, err := out.Write(report.Schema())

				return err
			}

			if len(args) == 0 {
				return ErrNoDocuments
			}

			p := newPrinter(out, noColor, errorsOnly)
			invalid := 0

			for _, path := range args {
				violations, err := validateFile(path)
				if err != nil {
					invalid++

					p.failure("%s: %v", path, err)

					continue
				}

				if len(violations) > 0 {
					invalid++

					p.failure("%s: %d violations", path, len(violations))

					for _, v := range violations {
						fmt.Fprintln(out, "    "+v)
					}

					continue
				}

				p.success("%s", path)
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidDocuments, invalid, len(args))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, noColorFlag, false, "Disable colored output")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the JSON schema and exit")
	cmd.Flags().BoolVar(&errorsOnly, "errors-only", false, "Only list invalid documents")

	return cmd
}

// validateFile returns the schema violations of the document at path. JSON
// files are checked as written; other formats are decoded first.
func validateFile(path string) ([]string, error) {
	data, err := documentJSON(path)
	if err != nil {
		return nil, err
	}

	err = report.ValidateDocument(data)

	var verr *report.ValidationError
	if errors.As(err, &verr) {
		return verr.Violations, nil
	}

	return nil, err
}

func documentJSON(path string) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		return data, nil
	}

	var raw map[string]any

	err := persist.LoadFile(path, &raw)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}

	return data, nil
}
