// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saferwall/stfs"
)

var asJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <package>",
	Short: "Dump package metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := stfs.New(args[0], &stfs.Options{
			HeaderOnly: true,
			Logger:     log,
		})
		if err != nil {
			return err
		}
		defer file.Close()

		if err := file.Parse(); err != nil {
			return err
		}

		if asJSON {
			return prettyPrint(file)
		}

		printInfo(file)
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&asJSON, "json", false, "dump as JSON")
}

func prettyPrint(iface interface{}) error {
	buff, err := json.Marshal(iface)
	if err != nil {
		return err
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		return err
	}

	fmt.Println(prettyJSON.String())
	return nil
}

func printInfo(file *stfs.File) {
	hdr := &file.Header

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Package type:\t%s\n", hdr.PackageType)
	fmt.Fprintf(w, "Content type:\t%s\n", hdr.ContentType)
	fmt.Fprintf(w, "File system:\t%s\n", hdr.FileSystemType)
	fmt.Fprintf(w, "Display name:\t%s\n", hdr.DisplayName)
	if hdr.DisplayDescription != "" {
		fmt.Fprintf(w, "Description:\t%s\n", hdr.DisplayDescription)
	}
	fmt.Fprintf(w, "Title:\t%s\n", hdr.TitleName)
	fmt.Fprintf(w, "Publisher:\t%s\n", hdr.PublisherName)
	fmt.Fprintf(w, "Title ID:\t%08X\n", hdr.TitleID)
	fmt.Fprintf(w, "Media ID:\t%08X\n", hdr.MediaID)
	fmt.Fprintf(w, "Version:\t%s (base %s)\n", hdr.Version, hdr.BaseVersion)
	fmt.Fprintf(w, "Content size:\t%d\n", hdr.ContentSize)
	fmt.Fprintf(w, "Console ID:\t%s\n", hex.EncodeToString(hdr.ConsoleID))
	fmt.Fprintf(w, "Profile ID:\t%s\n", hex.EncodeToString(hdr.ProfileID))

	if cert := hdr.Certificate; cert != nil {
		fmt.Fprintf(w, "Signed by console:\t%s (%s, %s)\n",
			hex.EncodeToString(cert.OwnerConsoleID),
			cert.OwnerConsoleType, cert.DateGeneration)
	}

	if vd := hdr.VolumeDescriptor; vd != nil {
		fmt.Fprintf(w, "Layout:\t%s\n", file.Sex)
		fmt.Fprintf(w, "Allocated blocks:\t%d\n", vd.AllocatedBlockCount)
		fmt.Fprintf(w, "File table blocks:\t%d (first %d)\n",
			vd.FileTableBlockCount, vd.FileTableBlockNum)
	}

	if hdr.InstallerType != stfs.InstallerTypeNone {
		fmt.Fprintf(w, "Installer:\t%s\n", hdr.InstallerType)
	}
	if meta := hdr.Installer; meta != nil {
		fmt.Fprintf(w, "Installer version:\t%s (base %s)\n",
			meta.InstallerVersion, meta.InstallerBaseVersion)
	}
	if cache := hdr.ProgressCache; cache != nil {
		fmt.Fprintf(w, "Resume state:\t%s (%d bytes processed)\n",
			cache.ResumeState, cache.BytesProcessed)
	}
}
