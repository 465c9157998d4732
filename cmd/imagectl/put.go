package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
)

var putCmd = &cobra.Command{
	Use:   "put [flags] <file>",
	Short: "Save an image into the catalog",
	Long: `Save an image file for an owner. The blob is written to the owner's
container and a record is written to the metadata store.

Examples:
  # Save a map for Alice in the "map" category
  imagectl put --owner Alice --category map town.png

  # Write only the blob
  imagectl put --owner Alice --blob-only town.png`,
	Args: cobra.ExactArgs(1),
	RunE: runPut,
}

var (
	putOwner       string
	putName        string
	putCategory    string
	putDescription string
	putBlobOnly    bool
)

func init() {
	putCmd.Flags().StringVarP(&putOwner, "owner", "u", "", "owner of the image (required)")
	putCmd.Flags().StringVarP(&putName, "name", "n", "", "image name (default: file name without extension)")
	putCmd.Flags().StringVarP(&putCategory, "category", "c", "", "image category")
	putCmd.Flags().StringVarP(&putDescription, "description", "d", "", "image description")
	putCmd.Flags().BoolVar(&putBlobOnly, "blob-only", false, "upload the blob without writing a record")
	_ = putCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	name := putName
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ctx := cmd.Context()
	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if putBlobOnly {
		err = svc.UploadImage(ctx, imagecatalog.UploadImageRequest{
			Owner:      putOwner,
			ImageName:  name,
			ImageBytes: data,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Image %s uploaded successfully\n", name)
		return nil
	}

	record, err := svc.SaveImage(ctx, imagecatalog.SaveImageRequest{
		Owner:       putOwner,
		Category:    putCategory,
		ImageName:   name,
		Description: putDescription,
		ImageBytes:  data,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Image %s saved successfully (id %s)\n", record.ImageName, record.ID)
	return nil
}
