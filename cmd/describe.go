package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/snapscribe/snapscribe/internal/config"
	"github.com/snapscribe/snapscribe/internal/describe"
	"github.com/snapscribe/snapscribe/internal/gemini"
)

func newDescribeCmd() *cobra.Command {
	var fixturePath string
	var model string
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "describe [image...]",
		Short: "Ask Gemini to describe images through a scripted conversation",
		Long: `Uploads images to Gemini, seeds a chat with the fixture's conversation
history and prints the model's reply to the fixture's final message.

With no arguments the fixture's own image paths are uploaded. Requires
GEMINI_API_KEY in the environment or a .env file.`,
		Example: `  # Run the built-in image analyzer conversation
  snapscribe describe image_transportation1.jpeg image_architecture3.jpeg portrait.jpg

  # Use a custom fixture and delete uploads afterwards
  snapscribe describe --fixture ./conversation.yaml --cleanup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fixture, err := describe.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.GeminiModel
			}
			if model == "" {
				model = fixture.Model
			}

			service, err := gemini.New(ctx, cfg.GeminiAPIKey, model)
			if err != nil {
				return err
			}
			defer service.Close()
			if cleanup {
				defer func() {
					if err := service.DeleteUploads(ctx); err != nil {
						slog.Error("Failed to delete uploads", "err", err)
					}
				}()
			}

			var inputs []describe.FileInput
			for _, path := range args {
				inputs = append(inputs, describe.FileInput{Path: path})
			}

			_, err = describe.NewClient(service, fixture, cmd.OutOrStdout()).Run(ctx, inputs)
			return err
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Conversation fixture YAML (defaults to the built-in image analyzer)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to GEMINI_MODEL or the fixture's model)")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Delete uploaded files after the run")

	return cmd
}
