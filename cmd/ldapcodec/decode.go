// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"errors"
	"io"

	"github.com/jimlambrt/ldapcodec"
	"github.com/jimlambrt/ldapcodec/host"
	"github.com/spf13/cobra"
)

type decodeFlags struct {
	stream    bool
	messageID bool
	controls  bool
	referrals bool
	allowBER  bool
}

func (f *decodeFlags) decoderOpts() []ldapcodec.Option {
	var opts []ldapcodec.Option
	if f.messageID {
		opts = append(opts, ldapcodec.WithMessageID())
	}
	if f.controls {
		opts = append(opts, ldapcodec.WithControls())
	}
	if f.referrals {
		opts = append(opts, ldapcodec.WithReferrals())
	}
	if f.allowBER {
		opts = append(opts, ldapcodec.WithAllowBER())
	}
	return opts
}

func newDecodeCmd(root *rootFlags) *cobra.Command {
	flags := &decodeFlags{}
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode an LDAP message (or a stream of them with --stream)",
		Long: `
Decode reads one DER encoded LDAP message from file (or stdin when file
is missing or "-") and writes its result. With --stream the input may hold
any number of concatenated messages, such as a capture of the responses to
a search, and one result is written per message.`,
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
			out := cmd.OutOrStdout()
			opts := append([]ldapcodec.Option{host.WithLogger(logger)}, flags.decoderOpts()...)

			if !flags.stream {
				tbl, err := host.Module(opts...)
				if err != nil {
					return err
				}
				return writeResult(out, c, tbl.Call(host.DecodeExport, ldapcodec.Bytes(data)))
			}

			d, err := ldapcodec.NewDecoder(append(opts, ldapcodec.WithLogger(logger))...)
			if err != nil {
				return err
			}
			r, err := ldapcodec.NewMessageReader(bytes.NewReader(data), d)
			if err != nil {
				return err
			}
			for {
				m, err := r.Next()
				switch {
				case errors.Is(err, io.EOF):
					logger.Debug("stream decoded", "messages", r.Count())
					return nil
				case err != nil:
					if err := writeResult(out, c, ldapcodec.Fail(err)); err != nil {
						return err
					}
					if r.Err() != nil {
						// the stream can't be framed any further
						return nil
					}
				default:
					if err := writeResult(out, c, ldapcodec.Succeed(m)); err != nil {
						return err
					}
				}
			}
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.stream, "stream", false, "Decode a stream of concatenated messages")
	f.BoolVar(&flags.messageID, "message-id", false, "Add message_id to results")
	f.BoolVar(&flags.controls, "controls", false, "Add decoded controls to results")
	f.BoolVar(&flags.referrals, "referrals", false, "Add referrals to results")
	f.BoolVar(&flags.allowBER, "ber", false, "Accept BER instead of requiring DER")
	return cmd
}
