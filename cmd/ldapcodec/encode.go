// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/jimlambrt/ldapcodec"
	"github.com/jimlambrt/ldapcodec/host"
	"github.com/spf13/cobra"
)

func newEncodeCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode an LDAP message (not yet implemented)",
		Long: `
Encode reads a value (in --format, msgpack or json) from file or stdin and
writes the encode result. Encoding isn't implemented yet, so the result
is always the "not yet implemented" error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger(cmd)
			if err != nil {
				return err
			}
			c, err := root.codec()
			if err != nil {
				return err
			}
			data, err := root.readInput(cmd, args)
			if err != nil {
				return err
			}
			tbl, err := host.Module(host.WithLogger(logger))
			if err != nil {
				return err
			}
			if c == nil {
				// text output: there's no input codec, so the raw input
				// is the value
				return writeResult(cmd.OutOrStdout(), nil, tbl.Call(host.EncodeExport, ldapcodec.Bytes(data)))
			}
			frame, err := tbl.Invoke(c, host.EncodeExport, data)
			if err != nil {
				return err
			}
			if c.Name() == host.JSONFormat {
				frame = append(frame, '\n')
			}
			_, err = cmd.OutOrStdout().Write(frame)
			return err
		},
	}
}
