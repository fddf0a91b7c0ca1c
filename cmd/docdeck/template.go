package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/template"
)

func templateCmd() *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "template <file.pptx>",
		Short: "Print what a reference deck teaches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := template.AnalyzeFile(args[0])
			if err != nil {
				return err
			}
			if savePath != "" {
				if err := profile.Save(savePath); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(profile); err != nil {
				return fmt.Errorf("print profile: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "also write the profile as JSON to this path")
	return cmd
}
