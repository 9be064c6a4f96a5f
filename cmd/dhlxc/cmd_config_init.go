package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed cmd_config_init_config.yml
var initConfigYAML []byte

//go:embed cmd_config_init_example.dhlx
var initExampleDHLX []byte

const configHeader = "# Defaults for every compile option. Flags given on the command line win.\n"

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise the " + appName + " config directory with starter files",
	Long: "Create the config directory and write a starter config.yml and an\n" +
		"example.dhlx map. Optional settings are commented out behind sentinel\n" +
		"markers and can be refreshed later with `" + appName + " config update`.\n\n" +
		"With --interactive the main settings are asked for first.\n\n" +
		"The default config directory is resolved as:\n" +
		"  $DHLXC_CONFIG_DIR > $XDG_CONFIG_HOME/dhlxc > ~/.config/dhlxc",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		interactive, _ := cmd.Flags().GetBool("interactive")
		dir, _ := cmd.Flags().GetString("dir")

		if dir == "" {
			var err error
			dir, err = resolveConfigDir()
			if err != nil {
				return err
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}

		configYAML := initConfigYAML
		if interactive {
			cfg, err := askConfig(defaultConfig())
			if err != nil {
				return err
			}
			configYAML, err = renderConfig(cfg)
			if err != nil {
				return err
			}
		}

		configFile := filepath.Join(dir, configFileName)
		exampleFile := filepath.Join(dir, "example.dhlx")
		if err := writeInitFile(configFile, configYAML, force); err != nil {
			return err
		}
		if err := writeInitFile(exampleFile, initExampleDHLX, force); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "initialised %s\n", dir)
		fmt.Fprintf(os.Stderr, "  %s\n", configFile)
		fmt.Fprintf(os.Stderr, "  %s\n", exampleFile)
		fmt.Fprintf(os.Stderr, "\nRun `%s compile %s` to build the example.\n", appName, exampleFile)
		return nil
	},
}

// askConfig asks for the main settings, starting from cfg.
func askConfig(cfg Config) (Config, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Map name").
				Value(&cfg.MapName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("map name must not be empty")
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Output formats").
				Options(huh.NewOptions(formatNames()...)...).
				Value(&cfg.Formats).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return errors.New("pick at least one format")
					}
					return nil
				}),
			huh.NewInput().
				Title("Output directory").
				Value(&cfg.OutDir),
			huh.NewConfirm().
				Title("Strict mode?").
				Description("Fields without a default type must be declared.").
				Value(&cfg.Strict),
		),
	)
	if err := form.Run(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// renderConfig writes cfg as config.yml, followed by the commented example
// block of the starter file.
func renderConfig(cfg Config) ([]byte, error) {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	out := append([]byte(configHeader), body...)
	if block := extractExampleBlock(initConfigYAML); block != nil {
		out = append(out, block...)
		out = append(out, '\n')
	}
	return out, nil
}

func writeInitFile(path string, content []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return os.WriteFile(path, content, 0o644)
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite existing files")
	configInitCmd.Flags().Bool("interactive", false, "ask for the main settings")
	configInitCmd.Flags().String("dir", "", "target config directory (default: auto-resolved)")
}
