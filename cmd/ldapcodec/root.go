// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
	"github.com/jimlambrt/ldapcodec/host"
	"github.com/spf13/cobra"
)

const (
	logLevelEnv = "LDAPCODEC_LOG_LEVEL"

	// textFormat prints results for people instead of programs
	textFormat = "text"
)

type rootFlags struct {
	format   string
	hex      bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "ldapcodec",
		Short: "Decode DER encoded LDAP messages",
		Long: `
ldapcodec decodes DER encoded LDAP response messages (bind response,
search result entry, search result done and modify response) into a
generic key/value result.

Every result is written as a two-slot frame [value, error] where exactly
one slot is null. Decode failures are results, so the exit status is
only non-zero for usage and I/O errors.`,
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.format, "format", "f", host.JSONFormat, "Output format json|msgpack|text")
	pf.BoolVar(&flags.hex, "hex", false, "Input is hex encoded (whitespace is ignored)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level trace|debug|info|warn|error|off (default from "+logLevelEnv+", else error)")

	rootCmd.AddCommand(newDecodeCmd(flags), newEncodeCmd(flags))
	return rootCmd
}

// logger returns a logger writing to the command's stderr.
func (f *rootFlags) logger(cmd *cobra.Command) (hclog.Logger, error) {
	level := f.logLevel
	if level == "" {
		level = os.Getenv(logLevelEnv)
	}
	if level == "" {
		level = "error"
	}
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "ldapcodec",
		Level:  l,
		Output: cmd.ErrOrStderr(),
	}), nil
}

// codec returns the codec for the output format; nil for textFormat.
func (f *rootFlags) codec() (host.Codec, error) {
	if f.format == textFormat {
		return nil, nil
	}
	return host.NewCodec(f.format)
}

// readInput reads the file named by args (or stdin) and hex decodes it when
// requested.
func (f *rootFlags) readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read input: %w", err)
	}
	if !f.hex {
		return data, nil
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(data))
	decoded, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return decoded, nil
}

// writeResult writes one result frame to w
func writeResult(w io.Writer, c host.Codec, r ldapcodec.Result) error {
	if c == nil {
		return writeText(w, r)
	}
	frame, err := c.MarshalResult(r)
	if err != nil {
		return err
	}
	if c.Name() == host.JSONFormat {
		frame = append(frame, '\n')
	}
	_, err = w.Write(frame)
	return err
}

func writeText(w io.Writer, r ldapcodec.Result) error {
	var buf bytes.Buffer
	switch v := r.(type) {
	case ldapcodec.Success:
		v.Value.PrettyPrint(0, ldapcodec.WithWriter(&buf))
	case ldapcodec.Failure:
		fmt.Fprintf(&buf, "error: %s\n", v.Diagnostic)
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}
