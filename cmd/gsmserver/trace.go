package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/legamerdc/gsm/trace"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded AT sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump <file>",
		Short: "Print a recorded AT session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return dump(cmd.OutOrStdout(), f)
		},
	})
	return cmd
}

func dump(w io.Writer, r io.Reader) error {
	rd, err := trace.NewReader(r)
	if err != nil {
		return err
	}
	defer rd.Close()
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
}
