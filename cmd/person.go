package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var personLinks int

var personCmd = &cobra.Command{
	Use:   "person <id|prefix|name>",
	Short: "Show a person from the snapshot database with their strongest links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := ResolvePerson(d, args[0])
		if err != nil {
			return err
		}
		images, err := d.ImagesFor(p.ID)
		if err != nil {
			return fmt.Errorf("loading images: %w", err)
		}
		links, err := d.StrongestLinks(p.ID, personLinks)
		if err != nil {
			return fmt.Errorf("loading links: %w", err)
		}

		fmt.Printf("\n  %s  (%s)\n", p.Name, p.ID)
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  Nationality: %s  Category: %s\n", orDash(p.Nationality), orDash(p.Category))
		if p.Role != "" {
			fmt.Printf("  Role: %s\n", p.Role)
		}
		if p.InBlackBook {
			fmt.Println("  Listed in the black book")
		}
		fmt.Printf("  Flights: %d  Documents: %d  Connections: %d\n", p.Flights, p.Documents, p.Connections)
		if len(p.Aliases) > 1 {
			fmt.Printf("  Also known as: %s\n", strings.Join(p.Aliases, "; "))
		}
		for _, img := range images {
			fmt.Printf("  Image: %s\n", img.Path)
		}

		if len(links) > 0 {
			fmt.Println("\n  Strongest links:")
			for _, l := range links {
				other := l.Other(p.ID)
				name := other
				if o, err := d.GetPerson(other); err == nil {
					name = o.Name
				}
				fmt.Printf("    %3d  %s  [%s]\n", l.Weight, truncName(name, 40), strings.Join(l.Types, ", "))
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	addDBFlag(personCmd)
	personCmd.Flags().IntVar(&personLinks, "links", 10, "Number of strongest links to show (0 for all)")
	rootCmd.AddCommand(personCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
