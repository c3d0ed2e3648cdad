// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saferwall/stfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls <package>",
	Short: "List the embedded file tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := stfs.New(args[0], &stfs.Options{Logger: log})
		if err != nil {
			return err
		}
		defer file.Close()

		if err := file.Parse(); err != nil {
			return err
		}

		root := file.Tree()
		if root == nil {
			return fmt.Errorf("%s: package carries no decodable file tree",
				args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		defer w.Flush()

		root.Walk(func(entry *stfs.FileEntry) {
			if entry.Directory {
				fmt.Fprintf(w, "\t%s/\n", entry.Path())
				return
			}
			fmt.Fprintf(w, "%d\t%s\n", entry.FileSize, entry.Path())
		})
		return nil
	},
}
