// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saferwall/stfs"
)

var outDir string

var extractCmd = &cobra.Command{
	Use:   "extract <package> [entry]",
	Short: "Extract one entry, or every file, out of the package",
	Args:  cobra.RangeArgs(1, 2),
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

		var wanted string
		if len(args) == 2 {
			wanted = args[1]
		}

		found := false
		var firstErr error
		root.Walk(func(entry *stfs.FileEntry) {
			if entry.Directory {
				return
			}
			if wanted != "" && entry.Path() != wanted {
				return
			}
			found = true
			if err := extractEntry(file, entry); err != nil && firstErr == nil {
				firstErr = err
			}
		})

		if firstErr != nil {
			return firstErr
		}
		if wanted != "" && !found {
			return fmt.Errorf("%s: no such entry in package", wanted)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&outDir, "out", "o", ".",
		"directory to extract into")
}

func extractEntry(file *stfs.File, entry *stfs.FileEntry) error {
	target := filepath.Join(outDir, filepath.FromSlash(entry.Path()))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	if err := file.Extract(entry, out); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("extract %s: %w", entry.Path(), err)
	}

	log.Debugf("extracted %s (%d bytes)", entry.Path(), entry.FileSize)
	return out.Close()
}
