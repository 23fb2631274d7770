// Command schlint validates an XML document against a Schematron ruleset
// and prints one line per finding. The exit code is 1 when any finding
// has error severity and 2 on usage or input errors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jacoelho/schematron"
	scherrors "github.com/jacoelho/schematron/errors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

func newRootCommand() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:           "schlint --rules <schema.sch> <document.xml>",
		Short:         "Validate an XML document against a Schematron ruleset",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), cmd.ErrOrStderr(), rulesPath, args[0])
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to the Schematron ruleset")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func run(stdout, stderr io.Writer, rulesPath, xmlPath string) error {
	rules, err := os.Open(rulesPath)
	if err != nil {
		return fmt.Errorf("open ruleset: %w", err)
	}
	defer rules.Close()

	compiled, err := schematron.Compile(rules)
	if err != nil {
		printCompileError(stderr, err)
		return &exitError{code: 2}
	}

	doc, err := os.Open(xmlPath)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	findings, err := compiled.Validate(doc)
	if err != nil {
		printCompileError(stderr, err)
		return &exitError{code: 2}
	}

	for _, f := range findings {
		printFinding(stdout, f)
	}
	if schematron.HasErrors(findings) {
		fmt.Fprintf(stderr, "%s fails to validate\n", xmlPath)
		return &exitError{code: 1}
	}
	return nil
}

func printCompileError(w io.Writer, err error) {
	if validations, ok := scherrors.AsValidations(err); ok {
		for _, v := range validations {
			fmt.Fprintln(w, v.Error())
		}
		return
	}
	fmt.Fprintln(w, err)
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	successLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
)

func printFinding(w io.Writer, f schematron.Finding) {
	label := successLabel("ok")
	if f.IsError() {
		label = errorLabel("error")
	}
	if f.Location != nil {
		fmt.Fprintf(w, "%s: %s (line %d, column %d)\n", label, f.Message, f.Location.Line, f.Location.Column)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, f.Message)
}
