package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/twinpane/internal/search"
	"github.com/justyntemme/twinpane/internal/session"
)

func newSearchCmd(a *app) *cobra.Command {
	var showHits bool
	cmd := &cobra.Command{
		Use:   "search <query> [path]",
		Short: "Search below a pane's current path and print the folders holding hits",
		Long: `Search below a pane's current path. The query may carry directives:
  ext:wav,aiff  size:>10MB  size:<1k  modified:<7d  modified:>2024-01-01`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := args[0]
			if search.Incomplete(strings.TrimSpace(query)) {
				return fmt.Errorf("incomplete query directive: %q", query)
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}

			s, err := a.openAt(ctx, a.paneID, path, session.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			results := make(chan search.Result, 1)
			s.Overlay().OnUpdate = func(res search.Result) {
				if res.Query == "" {
					return
				}
				select {
				case results <- res:
				default:
				}
			}
			s.SetQuery(query)

			var res search.Result
			select {
			case <-ctx.Done():
				return ctx.Err()
			case res = <-results:
			}
			if res.Err != nil {
				return res.Err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s hits in %s\n", humanize.Comma(int64(len(res.Hits))), res.Scope)
			search.Walk(res.Forest, func(f *search.Folder, depth int) {
				fmt.Fprintf(out, "%s%s/", strings.Repeat("  ", depth), f.Name)
				if f.Hits > 0 {
					fmt.Fprintf(out, " (%d)", f.Hits)
				}
				fmt.Fprintln(out)
			})
			if showHits {
				fmt.Fprintln(out)
				for _, h := range res.Hits {
					fmt.Fprintln(out, h.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHits, "hits", false, "also print every matching path")
	return cmd
}
