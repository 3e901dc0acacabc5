package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// addServerFlags adds the flags that override the listen address.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	cmd.Flags().String("host", "localhost", "Host to bind to")
	AddFlagValidation(cmd.Flags(), "port", ValidatePort)
}

// addFormatFlag adds --format restricted to formats.
func addFormatFlag(cmd *cobra.Command, target *string, formats ...string) {
	cmd.Flags().StringVarP(target, "format", "f", formats[0],
		fmt.Sprintf("Output format (%s)", strings.Join(formats, ", ")))
	AddFlagValidation(cmd.Flags(), "format", func(s string) error {
		return validateFormat(s, formats)
	})
}

// AddFlagValidation wraps flag name in fs so that values are checked when
// parsed.
func AddFlagValidation(fs *pflag.FlagSet, name string, validator func(string) error) {
	flag := fs.Lookup(name)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}

	return v.Value.Set(val)
}

// ValidatePort checks a TCP port number.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

func validateFormat(format string, allowed []string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}

	return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(allowed, ", "))
}
