package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/sznuper/reachable/internal/config"
)

// registerTargetFlags adds a persistent --flag for every field in
// config.Target, deriving the flag name from the yaml struct tag
// (snake_case → kebab-case).
func registerTargetFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	t := reflect.TypeOf(config.Target{})
	for i := range t.NumField() {
		f := t.Field(i)
		yamlTag := f.Tag.Get("yaml")
		flagName := strings.ReplaceAll(yamlTag, "_", "-")
		usage := "override target." + yamlTag

		switch f.Type.Kind() {
		case reflect.String:
			flags.String(flagName, "", usage)
		case reflect.Bool:
			flags.Bool(flagName, false, usage)
		case reflect.Int:
			flags.Int(flagName, 0, usage)
		case reflect.Slice:
			switch f.Type.Elem().Kind() {
			case reflect.Int:
				flags.IntSlice(flagName, nil, usage+" (comma separated)")
			case reflect.String:
				flags.StringSlice(flagName, nil, usage+" (comma separated)")
			}
		}
	}
}

// applyTargetFlags overlays CLI flag values onto the target. Only flags
// explicitly set by the user are applied.
func applyTargetFlags(flags *pflag.FlagSet, tgt *config.Target) error {
	t := reflect.TypeOf(*tgt)
	v := reflect.ValueOf(tgt).Elem()
	for i := range t.NumField() {
		f := t.Field(i)
		flagName := strings.ReplaceAll(f.Tag.Get("yaml"), "_", "-")
		if flags.Lookup(flagName) == nil || !flags.Changed(flagName) {
			continue
		}

		var err error
		switch f.Type.Kind() {
		case reflect.String:
			var s string
			s, err = flags.GetString(flagName)
			v.Field(i).SetString(s)
		case reflect.Bool:
			var b bool
			b, err = flags.GetBool(flagName)
			v.Field(i).SetBool(b)
		case reflect.Int:
			var n int
			n, err = flags.GetInt(flagName)
			v.Field(i).SetInt(int64(n))
		case reflect.Slice:
			var val any
			switch f.Type.Elem().Kind() {
			case reflect.Int:
				val, err = flags.GetIntSlice(flagName)
			case reflect.String:
				val, err = flags.GetStringSlice(flagName)
			}
			if err == nil && val != nil {
				v.Field(i).Set(reflect.ValueOf(val))
			}
		}
		if err != nil {
			return fmt.Errorf("flag --%s: %w", flagName, err)
		}
	}
	return nil
}
