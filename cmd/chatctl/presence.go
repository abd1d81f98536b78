package main

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/db"
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Print the persisted presence of every identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gdb, _, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(gdb) }()

		list, err := chat.NewRepo(gdb).ListPresence(cmd.Context(), "")
		if err != nil {
			return err
		}
		renderPresence(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presenceCmd)
}

func renderPresence(w io.Writer, list []chat.Presence) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Identity", "Online", "Last seen"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, p := range list {
		lastSeen := "-"
		if p.LastSeen != nil {
			lastSeen = p.LastSeen.UTC().Format(time.RFC3339)
		}
		table.Append([]string{p.Identity, strconv.FormatBool(p.IsOnline), lastSeen})
	}
	table.Render()
}
