package main

import (
	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/portable"
)

// addPortableFlags registers the three portable-data flags on cmd. Each is
// an optional-value string flag: "--portable" alone sets an empty value
// ("create a fresh directory"), "--portable=/path" sets a path, and
// omitting the flag entirely leaves its Options field nil (spec.md §4.6).
func addPortableFlags(cmd *cobra.Command) (portableVal, portableHomeVal, portableConfigVal *string) {
	var p, h, c string
	cmd.Flags().StringVar(&p, "portable", "", "wire a private home and config directory alongside the binary")
	cmd.Flags().StringVar(&h, "portable-home", "", "wire a private home directory alongside the binary")
	cmd.Flags().StringVar(&c, "portable-config", "", "wire a private config directory alongside the binary")
	cmd.Flags().Lookup("portable").NoOptDefVal = " "
	cmd.Flags().Lookup("portable-home").NoOptDefVal = " "
	cmd.Flags().Lookup("portable-config").NoOptDefVal = " "
	return &p, &h, &c
}

// portableOptionsFromFlags reads the three flags addPortableFlags
// registered into a portable.Options, translating cobra's "flag present
// with no operand" sentinel (a single space, since cobra's NoOptDefVal
// can't be truly empty for a StringVar) back to "".
func portableOptionsFromFlags(cmd *cobra.Command, p, h, c *string) portable.Options {
	var opts portable.Options
	if cmd.Flags().Changed("portable") {
		opts.Portable = normalizeFlagValue(p)
	}
	if cmd.Flags().Changed("portable-home") {
		opts.PortableHome = normalizeFlagValue(h)
	}
	if cmd.Flags().Changed("portable-config") {
		opts.PortableConfig = normalizeFlagValue(c)
	}
	return opts
}

func normalizeFlagValue(v *string) *string {
	if *v == " " {
		empty := ""
		return &empty
	}
	return v
}
