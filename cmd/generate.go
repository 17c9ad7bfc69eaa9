package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/model"
)

var (
	genForm  model.FormSubmission
	genInput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the report pipeline once for a single lead",
	Long:  "Runs the full pipeline for one submission given by flags or a JSON file (--input, - for stdin) and prints the run result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readSubmission(cmd.InOrStdin(), genInput, genForm)
		if err != nil {
			return err
		}

		p, err := initPipeline("generate")
		if err != nil {
			return err
		}

		result, runErr := p.Run(cmd.Context(), form)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode run result")
		}

		if runErr != nil {
			return eris.Wrap(runErr, "generate report")
		}
		zap.L().Info("report delivered",
			zap.String("run_id", result.RunID),
			zap.String("url", result.File.PublicURL),
		)
		return nil
	},
}

// readSubmission loads the submission from path (or stdin for "-") and
// overlays any non-empty flag values. With no path the flags are used as is.
func readSubmission(stdin io.Reader, path string, flags model.FormSubmission) (model.FormSubmission, error) {
	if path == "" {
		return flags, nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.FormSubmission{}, eris.Wrap(err, "read submission")
	}

	var form model.FormSubmission
	if err := json.Unmarshal(data, &form); err != nil {
		return model.FormSubmission{}, eris.Wrap(err, "parse submission")
	}

	overlay(&form.FirstName, flags.FirstName)
	overlay(&form.LastName, flags.LastName)
	overlay(&form.Email, flags.Email)
	overlay(&form.Phone, flags.Phone)
	overlay(&form.BusinessName, flags.BusinessName)
	overlay(&form.BusinessType, flags.BusinessType)
	overlay(&form.WebsiteLink, flags.WebsiteLink)
	return form, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genInput, "input", "", "JSON submission file (- for stdin)")
	f.StringVar(&genForm.FirstName, "first-name", "", "lead first name")
	f.StringVar(&genForm.LastName, "last-name", "", "lead last name")
	f.StringVar(&genForm.Email, "email", "", "lead email address")
	f.StringVar(&genForm.Phone, "phone", "", "lead phone number")
	f.StringVar(&genForm.BusinessName, "business-name", "", "business name")
	f.StringVar(&genForm.BusinessType, "business-type", "", "business type")
	f.StringVar(&genForm.WebsiteLink, "website", "", "business website")
	rootCmd.AddCommand(generateCmd)
}
