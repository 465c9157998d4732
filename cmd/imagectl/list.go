package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a catalog",
	Long: `List the application catalog, or an owner's catalog when --owner is set.

Examples:
  # Application images
  imagectl list

  # Alice's maps as YAML
  imagectl list --owner Alice --category map -o yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listOwner    string
	listCategory string
	listOutput   string
)

func init() {
	listCmd.Flags().StringVarP(&listOwner, "owner", "u", "", "owner whose images to list")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "narrow an owner listing to one category")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listCategory != "" && listOwner == "" {
		return fmt.Errorf("--category requires --owner")
	}

	ctx := cmd.Context()
	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	catalog, err := svc.Catalog(ctx, imagecatalog.Scope{Owner: listOwner, Category: listCategory})
	if err != nil {
		return err
	}
	return printCatalog(cmd.OutOrStdout(), catalog, listOutput)
}

// catalogEntry is the printable form of a record. Payloads are summarized
// by size.
type catalogEntry struct {
	ID          string `json:"id" yaml:"id"`
	UserName    string `json:"userName" yaml:"userName"`
	Category    string `json:"category" yaml:"category"`
	ImageName   string `json:"imageName" yaml:"imageName"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Size        int    `json:"size" yaml:"size"`
}

type catalogOutput struct {
	Category string         `json:"category" yaml:"category"`
	Images   []catalogEntry `json:"images" yaml:"images"`
}

func toOutput(catalog *imagecatalog.ImageCatalog) catalogOutput {
	out := catalogOutput{Category: catalog.Category, Images: make([]catalogEntry, 0, len(catalog.Images))}
	for _, img := range catalog.Images {
		out.Images = append(out.Images, catalogEntry{
			ID:          img.ID,
			UserName:    img.UserName,
			Category:    img.Category,
			ImageName:   img.ImageName,
			Description: img.Description,
			Size:        len(img.ImageBytes),
		})
	}
	return out
}

func printCatalog(w io.Writer, catalog *imagecatalog.ImageCatalog, format string) error {
	out := toOutput(catalog)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		return printTable(w, out)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func printTable(w io.Writer, out catalogOutput) error {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Catalog: %s\n", out.Category)

	if len(out.Images) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No images")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tCATEGORY\tNAME\tSIZE")
	for _, e := range out.Images {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", e.ID, e.UserName, e.Category, e.ImageName, e.Size)
	}
	return tw.Flush()
}
