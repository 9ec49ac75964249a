package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/config"
)

var configShowFile bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect and edit the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the effective config",
	Long:  `print the config after defaults, the file, environment variables and flags are applied. --file prints only what is saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfig(cmd)
		if err != nil {
			return err
		}

		cfg := cs.Get()
		if configShowFile {
			cfg = cs.File()
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "set a config value and save it",
	Long:  `set a dotted key such as display.player_type or sync.offset_ms and write the file.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfig(cmd)
		if err != nil {
			return err
		}

		var setErr error
		err = cs.Update(func(c *config.Config) {
			setErr = c.Set(args[0], args[1])
		})
		if setErr != nil {
			return setErr
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s = %s (saved to %s)\n", args[0], args[1], cs.Path())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPath)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().BoolVar(&configShowFile, "file", false, "show the saved file without overrides")
}
