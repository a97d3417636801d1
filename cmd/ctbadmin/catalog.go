package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ctbadmin/internal/application/orchestrators"
	"ctbadmin/internal/application/projections"
	"ctbadmin/internal/domain/catalog"
)

func newCatalogCmd(get func() *app, root *rootOptions) *cobra.Command {
	var domainFlag string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and edit the therapies and martial arts catalogs",
	}
	cmd.PersistentFlags().StringVar(&domainFlag, "domain", "", "catalog domain: therapies or arts-martiaux")
	_ = cmd.MarkPersistentFlagRequired("domain")

	domain := func() (catalog.Domain, error) { return catalog.ParseDomain(domainFlag) }

	cmd.AddCommand(
		catalogListCmd(get, root, domain),
		catalogPullCmd(get, domain),
		catalogPushCmd(get, root, domain),
		catalogDeleteCmd(get, root, domain),
		catalogPreviewCmd(get, root, domain),
	)
	return cmd
}

func catalogListCmd(get func() *app, root *rootOptions, domain func() (catalog.Domain, error)) *cobra.Command {
	var (
		query   string
		page    int
		perPage int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities sorted by display order",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			d, err := domain()
			if err != nil {
				return err
			}
			res, err := projections.QueryGetCatalogList(ctx, projections.GetCatalogListQuery{
				Domain: d, Search: query, Page: page, PerPage: perPage,
			}, projections.GetCatalogListDeps{Catalog: a.api})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tORDRE\tNOM\tSLUG\tTYPES\tOPTIONS\tFORFAITS")
			for _, r := range res.Rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%d\n", r.ID, r.Order, r.Name, dash(r.Slug), dash(strings.Join(r.Types, ",")), r.Locations, r.Sessions)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if res.PageInfo.ShowPagination() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d–%d sur %d (page %d/%d)\n",
					res.PageInfo.StartRow(), res.PageInfo.EndRow(), res.PageInfo.Total, res.PageInfo.Page, res.PageInfo.TotalPages)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&query, "query", "", "filter on name, slug, type or option name")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "rows per page (10, 20, 50, 100, 200)")
	return cmd
}

func catalogPullCmd(get func() *app, domain func() (catalog.Domain, error)) *cobra.Command {
	var id, slug, out string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Write one activity as JSON for offline editing",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			d, err := domain()
			if err != nil {
				return err
			}
			c, err := a.api.GetCatalog(ctx, d)
			if err != nil {
				return err
			}
			var act catalog.Activity
			if id != "" {
				act, err = c.Find(catalog.ID(id))
			} else {
				act, err = c.FindBySlug(slug)
			}
			if err != nil {
				return err
			}

			if out == "" {
				return printJSON(cmd.OutOrStdout(), act)
			}
			raw, err := json.MarshalIndent(act, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, append(raw, '\n'), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activité %s écrite dans %s\n", act.ID, out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	cmd.Flags().StringVar(&slug, "slug", "", "activity slug")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	cmd.MarkFlagsOneRequired("id", "slug")
	cmd.MarkFlagsMutuallyExclusive("id", "slug")
	return cmd
}

func catalogPushCmd(get func() *app, root *rootOptions, domain func() (catalog.Domain, error)) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Create or update an activity from a JSON file",
		Long: "Create or update an activity from a JSON file produced by pull.\n" +
			"An activity without id is created. Otherwise only the differences with the\n" +
			"server copy are sent, and rows removed from the file are deleted.",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			d, err := domain()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var act catalog.Activity
			if err := json.Unmarshal(raw, &act); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			res, err := orchestrators.ExecutePushActivity(ctx, orchestrators.PushActivityInput{Domain: d, Activity: act},
				orchestrators.SaveActivityDeps{Syncer: a.engine, Catalog: a.api})
			if root.json {
				if jerr := printJSON(cmd.OutOrStdout(), res); jerr != nil {
					return jerr
				}
				return err
			}
			if err != nil {
				if res.Stats.Calls() > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d modifications appliquées avant l'échec; le catalogue est partiellement à jour.\n", res.Stats.Calls())
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activité %s enregistrée: %d créés, %d modifiés, %d supprimés\n",
				res.ActivityID, res.Stats.Created, res.Stats.Updated, res.Stats.Deleted)
			return nil
		}),
	}
	cmd.Flags().StringVar(&file, "file", "", "activity JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func catalogDeleteCmd(get func() *app, root *rootOptions, domain func() (catalog.Domain, error)) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an activity",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			d, err := domain()
			if err != nil {
				return err
			}
			c, err := orchestrators.ExecuteDeleteActivity(ctx, orchestrators.DeleteActivityInput{Domain: d, ActivityID: catalog.ID(id)},
				orchestrators.DeleteActivityDeps{API: a.api, Catalog: a.api})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activité %s supprimée (%d restantes)\n", id, len(c.Activities))
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func catalogPreviewCmd(get func() *app, root *rootOptions, domain func() (catalog.Domain, error)) *cobra.Command {
	var (
		id       string
		typeKey  string
		location int
		html     bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the pricing card of an activity option",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			d, err := domain()
			if err != nil {
				return err
			}
			if typeKey != "" && !catalog.IsValidTypeKey(typeKey) {
				return catalog.ErrInvalidTypeKey
			}
			p, err := projections.QueryGetPricingPreview(ctx, projections.GetPricingPreviewQuery{
				Domain: d, ActivityID: catalog.ID(id), TypeKey: typeKey, Location: location,
			}, projections.GetPricingPreviewDeps{Catalog: a.api})
			if err != nil {
				return err
			}

			switch {
			case root.json:
				return printJSON(cmd.OutOrStdout(), p)
			case html:
				out, err := projections.RenderPricingPreviewHTML(p)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n%s\n%s\n", p.Title, dash(p.D1), dash(p.D2))
			if len(p.Items) == 0 {
				fmt.Fprintln(w, "  —")
			}
			for _, it := range p.Items {
				fmt.Fprintf(w, "  %s : %g $\n", dash(it.Label), it.Price)
			}
			if p.Sub != "" {
				fmt.Fprintln(w, p.Sub)
			}
			if p.Hidden {
				fmt.Fprintln(w, "(masqué sur le site)")
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id")
	cmd.Flags().StringVar(&typeKey, "type", "", "type key: group or private (first type when empty)")
	cmd.Flags().IntVar(&location, "location", 0, "option index within the type")
	cmd.Flags().BoolVar(&html, "html", false, "render the card as HTML")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
