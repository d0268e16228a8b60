package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidahmann/reportstore/core/client"
	coreerrors "github.com/davidahmann/reportstore/core/errors"
	"github.com/davidahmann/reportstore/core/report"
	"github.com/davidahmann/reportstore/core/store"
)

const defaultProductURL = "localhost:8001/Default"

func newStoreCommand(logger func() *zap.Logger) *cobra.Command {
	var (
		name       string
		tag        string
		force      bool
		productURL string
		inputType  string
		tempDir    string
	)

	cmd := &cobra.Command{
		Use:   "store [input ...]",
		Short: "Upload analysis result files or directories to a product.",
		Long: `Upload analysis result files or directories to a product.

Each input is a result file or a directory scanned non-recursively for
result files and run metadata. Source files referenced by the results
are uploaded only when the server does not already hold their content.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputType != "plist" {
				return coreerrors.New(
					fmt.Sprintf("unsupported input type %q", inputType),
					coreerrors.CategoryInvalidInput, "unsupported_input_type",
					"only plist result files are supported")
			}
			inputs := args
			if len(inputs) == 0 {
				inputs = []string{"./reports"}
			}

			remote, err := client.New(client.Options{
				ProductURL: productURL,
				Token:      os.Getenv("REPORTSTORE_TOKEN"),
			})
			if err != nil {
				return err
			}

			log := logger()
			defer func() { _ = log.Sync() }()
			log.Debug("storing to product",
				zap.String("product", remote.Product().String()))

			result, err := store.Run(cmd.Context(), store.Options{
				Inputs:  inputs,
				Name:    name,
				Tag:     tag,
				Force:   force,
				Version: version,
				TempDir: tempDir,
				Parser:  report.Parser{},
				Product: remote,
				Store:   remote,
				Logger:  log,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"stored run %q: %d report file(s), %d source file(s) uploaded of %d referenced\n",
				result.RunName, result.Reports, result.MissingHashes, result.DistinctHashes)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&name, "name", "n", "", "run name; derived from run metadata when omitted")
	flags.StringVar(&tag, "tag", "", "tag to attach to this store of the run")
	flags.BoolVarP(&force, "force", "f", false, "delete reports stored under the run name before storing")
	flags.StringVar(&productURL, "url", defaultProductURL, "product URL as [scheme://]host[:port]/endpoint")
	flags.StringVarP(&inputType, "type", "t", "plist", "input result format")
	flags.StringVar(&tempDir, "temp-dir", "", "directory for the temporary upload bundle")

	return cmd
}
