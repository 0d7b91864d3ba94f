package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/autoclip"
	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigTriggersCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Review paths.output_dir and converter.ffmpeg_binary, then run `clipforge daemon start`.\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "# %s\n", filepath.Clean(ctx.configPath))
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigTriggersCommand(ctx *commandContext) *cobra.Command {
	var audio, visual, autoClip bool
	var duration, cooldown int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "triggers [workflow]",
		Short: "Show or update a workflow's trigger settings",
		Long: "Without flags, prints the effective trigger settings for the workflow.\n" +
			"With any of --audio, --visual, --auto-clip, --auto-clip-duration, or --cooldown,\n" +
			"stores the updated settings first. The workflow defaults to triggers.workflow.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			workflowName := strings.TrimSpace(cfg.Triggers.Workflow)
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				workflowName = strings.TrimSpace(args[0])
			}
			if duration < 0 || cooldown < 0 {
				return fmt.Errorf("--auto-clip-duration and --cooldown must be zero or positive")
			}
			flags := cmd.Flags()
			apply := func(tc *api.TriggerConfig) bool {
				changed := false
				if flags.Changed("audio") {
					tc.AudioEnabled, changed = audio, true
				}
				if flags.Changed("visual") {
					tc.VisualEnabled, changed = visual, true
				}
				if flags.Changed("auto-clip") {
					tc.AutoClipEnabled, changed = autoClip, true
				}
				if flags.Changed("auto-clip-duration") {
					tc.AutoClipDuration, changed = duration, true
				}
				if flags.Changed("cooldown") {
					tc.CooldownSeconds, changed = cooldown, true
				}
				return changed
			}

			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var current api.TriggerConfig
				if client != nil {
					fetched, err := client.TriggerConfig(cmd.Context(), workflowName)
					if err != nil {
						return err
					}
					current = *fetched
				} else {
					stored, err := store.GetTriggerConfig(cmd.Context(), workflowName)
					if err != nil {
						return err
					}
					if stored == nil {
						defaults := autoclip.DefaultsFromConfig(cfg)
						defaults.Workflow = workflowName
						stored = &defaults
					}
					current = api.FromTriggerConfig(*stored)
				}

				if apply(&current) {
					if client != nil {
						updated, err := client.SetTriggerConfig(cmd.Context(), workflowName, current)
						if err != nil {
							return err
						}
						current = *updated
					} else {
						updated, err := store.UpsertTriggerConfig(cmd.Context(), api.ToTriggerConfig(workflowName, current))
						if err != nil {
							return err
						}
						current = api.FromTriggerConfig(*updated)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Updated trigger settings for %s\n", workflowName)
				}

				if jsonOut {
					return writeJSON(cmd, current)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Setting", "Value"},
					[][]string{
						{"Workflow", current.Workflow},
						{"Audio triggers", yesNo(current.AudioEnabled)},
						{"Visual triggers", yesNo(current.VisualEnabled)},
						{"Auto-clip", yesNo(current.AutoClipEnabled)},
						{"Auto-clip duration", fmt.Sprintf("%ds", current.AutoClipDuration)},
						{"Cooldown", fmt.Sprintf("%ds", current.CooldownSeconds)},
					},
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&audio, "audio", false, "Enable audio (voice) triggers")
	cmd.Flags().BoolVar(&visual, "visual", false, "Enable visual (gesture) triggers")
	cmd.Flags().BoolVar(&autoClip, "auto-clip", false, "End clips automatically after --auto-clip-duration")
	cmd.Flags().IntVar(&duration, "auto-clip-duration", 0, "Auto-clip length in seconds")
	cmd.Flags().IntVar(&cooldown, "cooldown", 0, "Seconds to ignore triggers after a clip starts")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
