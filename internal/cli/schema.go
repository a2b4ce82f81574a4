package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/briefcase/internal/repo"
	"github.com/roach88/briefcase/internal/schemadef"
)

// ValidationResult holds schema validation results.
type ValidationResult struct {
	Valid   bool                        `json:"valid"`
	Schemas []string                    `json:"schemas,omitempty"`
	Errors  []schemadef.ValidationError `json:"errors,omitempty"`
}

// ImportResult reports a schema import.
type ImportResult struct {
	Schemas []string `json:"schemas"`
	Added   int      `json:"classes_added"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate and import CUE schema definitions",
	}
	cmd.AddCommand(newSchemaValidateCommand(rootOpts))
	cmd.AddCommand(newSchemaImportCommand(rootOpts))
	return cmd
}

func newSchemaValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.cue>",
		Short: "Validate schema definitions without importing them",
		Long: `Compile and validate CUE schema definitions.

Example file:
  schema: Building: {
  	version: "1.0.0"
  	class: Door: {kind: "entity", base: "Core:PhysicalElement"}
  	class: DoorOpensInto: {kind: "relationship", strategy: "link_table"}
  }`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			schemas, err := compileSchemas(f, args[0])
			if err != nil {
				return err
			}
			return outputValidateSuccess(f, schemas)
		},
	}
}

func newSchemaImportCommand(rootOpts *RootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "import <path> <file.cue>",
		Short: "Import schema definitions into a repository",
		Long: `Import schema definitions into a repository and save the change.

Schemas already present gain their missing classes; existing classes are
never modified.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaImport(rootOpts, args[0], args[1], description, cmd)
		},
	}
	cmd.Flags().StringVarP(&description, "message", "m", "", "description of the saved change")
	return cmd
}

// compileSchemas compiles and validates path, reporting failures.
func compileSchemas(f *OutputFormatter, path string) ([]*schemadef.Schema, error) {
	schemas, err := schemadef.CompileFile(path)
	if err != nil {
		var cerr *schemadef.CompileError
		if errors.As(err, &cerr) {
			return nil, f.Fail(ExitFailure, ErrCodeSchemaCompile, "schema compile failed", err)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "read schema file", err)
	}
	f.VerboseLog("Compiled %d schema(s) from %s", len(schemas), path)

	if verrs := schemadef.Validate(schemas); len(verrs) > 0 {
		return nil, outputValidationErrors(f, verrs)
	}
	return schemas, nil
}

func runSchemaImport(opts *RootOptions, path, file, description string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	schemas, err := compileSchemas(f, file)
	if err != nil {
		return err
	}

	ropts := opts.repoOptions(cmd)
	r, err := repo.Open(ctx, path, ropts)
	if err != nil {
		return fail(f, "open failed", err)
	}
	defer closeRepo(r, ropts.Logger)

	added, err := r.ImportSchemas(ctx, r.WriteToken(), schemas)
	if err != nil {
		return fail(f, "import failed", err)
	}
	if description == "" {
		description = "import " + file
	}
	if err := r.SaveChanges(ctx, description); err != nil {
		return fail(f, "save failed", err)
	}

	result := ImportResult{Schemas: schemaNames(schemas), Added: added}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Imported %d schema(s), %d class(es) added\n", len(schemas), added)
	})
}

func schemaNames(schemas []*schemadef.Schema) []string {
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	return names
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(f *OutputFormatter, schemas []*schemadef.Schema) error {
	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true, Schemas: schemaNames(schemas)})
	}

	fmt.Fprintln(f.Writer, "✓ All schemas valid")
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, errs []schemadef.ValidationError) error {
	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, err := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s.%s: %s\n", err.Code, err.Schema, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
