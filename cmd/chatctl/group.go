package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/db"
)

// groupCmd seeds a group for local testing. Production groups are owned by
// the group service.
var groupCmd = &cobra.Command{
	Use:   "group <name> <creator> [member...]",
	Short: "Create a group and print its conversation target",
	Args:  cobra.MinimumNArgs(2),
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

		name, creator := args[0], args[1]
		members := lo.Uniq(lo.Filter(append([]string{creator}, args[2:]...), func(m string, _ int) bool {
			return strings.TrimSpace(m) != ""
		}))

		g := &chat.Group{Name: name, CreatedBy: creator}
		if err := chat.NewRepo(gdb).CreateGroup(cmd.Context(), g, members...); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), conversation.Group(fmt.Sprint(g.ID)).String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
}
