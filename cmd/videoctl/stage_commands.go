package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// result is the --json output of a stage command.
type result struct {
	Command string `json:"command"`
	Name    string `json:"name,omitempty"`
	Output  string `json:"output,omitempty"`
	Status  string `json:"status"`
}

func report(cmd *cobra.Command, ctx *commandContext, r result, text string) error {
	if ctx.jsonOutput {
		return writeJSON(cmd, r)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the local raw and processed directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.SetupDirectories(); err != nil {
				return err
			}
			return report(cmd, ctx, result{Command: "setup", Status: "ok"}, "Directories ready")
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <name>",
		Short: "Download a raw video into the raw directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DownloadRawVideo(cmd.Context(), args[0]); err != nil {
				return err
			}
			return report(cmd, ctx, result{Command: "download", Name: args[0], Status: "ok"},
				fmt.Sprintf("Downloaded %s", args[0]))
		},
	}
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <raw-name> <processed-name>",
		Short: "Transcode a raw video into the processed directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.ConvertVideo(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return report(cmd, ctx, result{Command: "convert", Name: args[0], Output: args[1], Status: "ok"},
				fmt.Sprintf("Converted %s -> %s", args[0], args[1]))
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <name>",
		Short: "Upload a processed video and make it public",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.UploadProcessedVideo(cmd.Context(), args[0]); err != nil {
				return err
			}
			return report(cmd, ctx, result{Command: "upload", Name: args[0], Status: "ok"},
				fmt.Sprintf("Uploaded %s", args[0]))
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "delete raw|processed <name>",
		Short:     "Delete a local raw or processed video",
		Args:      cobra.MatchAll(cobra.ExactArgs(2), validKind),
		ValidArgs: []string{"raw", "processed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			kind, name := args[0], args[1]
			if kind == "raw" {
				err = svc.DeleteRawVideo(cmd.Context(), name)
			} else {
				err = svc.DeleteProcessedVideo(cmd.Context(), name)
			}
			if err != nil {
				return err
			}
			return report(cmd, ctx, result{Command: "delete " + kind, Name: name, Status: "ok"},
				fmt.Sprintf("Deleted %s video %s", kind, name))
		},
	}
}

func validKind(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "raw", "processed":
		return nil
	default:
		return fmt.Errorf("unknown video kind %q (want raw or processed)", args[0])
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <name>",
		Short: "Run the whole pipeline for a raw video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.SetupDirectories(); err != nil {
				return err
			}
			v, err := svc.Process(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %s -> %s\n", v.FileName, v.ProcessedFileName)
			return nil
		},
	}
}
