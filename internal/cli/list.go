package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

var (
	listInclude []string
	listExclude []string
	listNoCache bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the items of the remote mirror",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringArrayVar(&listInclude, "include", nil, "Anchored include pattern (repeatable)")
	listCmd.Flags().StringArrayVar(&listExclude, "exclude", nil, "Anchored exclude pattern (repeatable)")
	listCmd.Flags().BoolVar(&listNoCache, "no-cache", false, "Ignore the cache file and list the remote structure")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	matcher, err := newMatcher(listInclude, listExclude)
	if err != nil {
		return err
	}

	handler, err := buildHandler(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		if terr := handler.Teardown(); terr != nil && err == nil {
			err = terr
		}
	}()

	if err := handler.Init(model.ModeList, cfg.CacheFile, cfg.LockFile, cfg.PIDFile, listNoCache, false); err != nil {
		return err
	}

	items, err := handler.List(matcher)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Path", "Type", "Size", "Modified"})
	for _, item := range items {
		table.Append([]string{
			item.Path(),
			item.Type.String(),
			strconv.FormatInt(item.Size, 10),
			item.ModTime.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return nil
}
