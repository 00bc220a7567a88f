package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// loadConfig reads cfgFile into v when one was given. There is no implicit
// config file and no environment lookup.
func loadConfig(v *viper.Viper, cfgFile string, allowMissing bool) error {
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func newConfigCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, get or set flag defaults in a config file",
		Long:  "Show the resolved settings, or get and set values in the YAML file given with --config.",
		Example: `  merge-score config --config merge.yaml                       # show resolved settings
  merge-score config set colinearity blocks.tsv --config merge.yaml
  merge-score config get colinearity --config merge.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runConfigShow(v, stdout); err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}

	cmd.AddCommand(newConfigSetCmd(v, stdout))
	cmd.AddCommand(newConfigGetCmd(v, stdout))

	return cmd
}

func newConfigSetCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runConfigSet(v, stdout, args[0], args[1]); err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}
}

func newConfigGetCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runConfigGet(v, stdout, args[0]); err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}
}

func runConfigShow(v *viper.Viper, stdout io.Writer) error {
	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(stdout, string(out))
	return nil
}

// runConfigSet updates key in the config file. Only keys already in the file
// plus the new one are written; flag defaults are not.
func runConfigSet(v *viper.Viper, stdout io.Writer, key, value string) error {
	cfgFile := v.ConfigFileUsed()
	if cfgFile == "" {
		return errors.New("config set requires --config")
	}

	fileCfg := viper.New()
	if err := loadConfig(fileCfg, cfgFile, true); err != nil {
		return err
	}

	switch key {
	case keyVerbose:
		// Parse boolean-like values
		switch value {
		case "true", "yes", "on":
			fileCfg.Set(key, true)
		case "false", "no", "off":
			fileCfg.Set(key, false)
		default:
			return fmt.Errorf("invalid boolean %q for %s", value, key)
		}
	case keyTop:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid count %q for %s", value, key)
		}
		fileCfg.Set(key, n)
	case keyScore, keyColinearity, keyBed1, keyBed2, keyOutput, keyDuckDB:
		fileCfg.Set(key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := fileCfg.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(v *viper.Viper, stdout io.Writer, key string) error {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(stdout, v.Get(key))
	return nil
}
