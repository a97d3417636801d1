package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ctbadmin/internal/adapters/upload"
	"ctbadmin/internal/application/orchestrators"
	"ctbadmin/internal/application/projections"
	"ctbadmin/internal/domain/capsule"
	"ctbadmin/internal/domain/newsletter"
)

func newCapsulesCmd(get func() *app, root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capsules",
		Short: "Manage audio and video capsules",
	}
	cmd.AddCommand(capsulesListCmd(get, root), capsulesSaveCmd(get, root), capsulesDeleteCmd(get))
	return cmd
}

func capsulesListCmd(get func() *app, root *rootOptions) *cobra.Command {
	var typ, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List capsules",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			res, err := projections.QueryGetCapsuleList(ctx, projections.GetCapsuleListQuery{Type: typ, Search: query},
				projections.GetCapsuleListDeps{API: a.api})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTYPE\tTITRE\tCATÉGORIE\tDURÉE\tPRIX\tDATE")
			for _, c := range res.Capsules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f $\t%s\n", c.ID, c.TypeLabel(), c.Title, dash(c.Category), dash(c.Duration), c.Price, dash(c.Date))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d / %d capsules\n", len(res.Capsules), res.Total)
			return nil
		}),
	}
	cmd.Flags().StringVar(&typ, "type", "all", "all, audio or video")
	cmd.Flags().StringVar(&query, "query", "", "filter on title and category")
	return cmd
}

func capsulesSaveCmd(get func() *app, root *rootOptions) *cobra.Command {
	var id, file, mediaPath, thumbPath string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a capsule from a JSON form",
		Long: "Create or update a capsule. The JSON file carries the form fields\n" +
			"(title, description, category, type, duration, price, date).\n" +
			"Creation requires --media and --thumbnail; on update they are optional.",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			form := capsule.EmptyForm(time.Now())
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &form); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			input := orchestrators.SaveCapsuleInput{ID: id, Form: form}
			if mediaPath != "" {
				f, err := upload.ReadFile(mediaPath)
				if err != nil {
					return err
				}
				input.Media = &f
			}
			if thumbPath != "" {
				f, err := upload.ReadFile(thumbPath)
				if err != nil {
					return err
				}
				input.Thumbnail = &f
			}

			res, err := orchestrators.ExecuteSaveCapsule(ctx, input, orchestrators.SaveCapsuleDeps{API: a.api, Uploader: a.uploader})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), res.Capsule)
			}
			verb := "modifiée"
			if res.Created {
				verb = "créée"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capsule %s %s\n", res.Capsule.ID, verb)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "capsule id to update (create when empty)")
	cmd.Flags().StringVar(&file, "file", "", "capsule form JSON file")
	cmd.Flags().StringVar(&mediaPath, "media", "", "audio or video file to upload")
	cmd.Flags().StringVar(&thumbPath, "thumbnail", "", "thumbnail image to upload")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func capsulesDeleteCmd(get func() *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a capsule",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := orchestrators.ExecuteDeleteCapsule(ctx, orchestrators.DeleteCapsuleInput{CapsuleID: id},
				orchestrators.DeleteCapsuleDeps{API: a.api}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capsule %s supprimée\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "capsule id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newQuotesCmd(get func() *app, root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Read and edit the quotes shown on the public site",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Show every quote section",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			rows := projections.QueryGetQuoteBoard(ctx, projections.GetQuoteBoardDeps{API: a.api})
			if root.json {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			tw := newTable(cmd.OutOrStdout())
			for _, r := range rows {
				text := r.Text
				if r.Status == projections.QuoteStatusError {
					text = "erreur: " + r.Message
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, r.Label, dash(text))
			}
			return tw.Flush()
		}),
	}
	set := &cobra.Command{
		Use:   "set <section> <text>",
		Short: "Replace the quote of a section",
		Args:  cobra.MinimumNArgs(2),
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			text, err := orchestrators.ExecuteUpdateQuote(ctx, orchestrators.UpdateQuoteInput{
				Section: args[0],
				Text:    strings.Join(args[1:], " "),
			}, orchestrators.UpdateQuoteDeps{API: a.api})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], text)
			return nil
		}),
	}
	cmd.AddCommand(list, set)
	return cmd
}

func newNewsletterCmd(get func() *app, root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsletter",
		Short: "List and export newsletter subscribers",
	}
	list := &cobra.Command{
		Use:   "list [all|arts|therapy]",
		Short: "List the subscribers of a segment (the last one used by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var segment string
			if len(args) == 1 {
				segment = args[0]
			}
			res, err := orchestrators.ExecuteListSubscribers(ctx, orchestrators.ListSubscribersInput{Segment: segment},
				orchestrators.ListSubscribersDeps{API: a.api, Prefs: a.state})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			for _, e := range newsletter.Emails(res.Subscribers) {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d abonnés (%s)\n", len(res.Subscribers), res.Segment)
			return nil
		}),
	}

	var out, mailTo string
	export := &cobra.Command{
		Use:   "export [all|arts|therapy]",
		Short: "Download the CSV export of a segment",
		Args:  cobra.MaximumNArgs(1),
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			input := orchestrators.ExportSubscribersInput{MailTo: mailTo}
			if len(args) == 1 {
				input.Segment = args[0]
			}
			var f *os.File
			if out != "" {
				var err error
				if f, err = os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err != nil {
					return err
				}
				defer f.Close()
				input.Out = f
			} else if mailTo == "" {
				input.Out = cmd.OutOrStdout()
			}

			res, err := orchestrators.ExecuteExportSubscribers(ctx, input,
				orchestrators.ExportSubscribersDeps{API: a.api, Sender: a.sender})
			if err != nil {
				return err
			}
			if f != nil {
				if err := f.Close(); err != nil {
					return err
				}
			}
			if root.json {
				return printJSON(cmd.ErrOrStderr(), res)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d adresses exportées (%s)", res.Rows, res.Filename)
			if res.MessageID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), ", envoyées à %s", mailTo)
			}
			fmt.Fprintln(cmd.ErrOrStderr())
			return nil
		}),
	}
	export.Flags().StringVar(&out, "out", "", "CSV output file (stdout when empty and not mailing)")
	export.Flags().StringVar(&mailTo, "mail-to", "", "also send the CSV to this address")

	cmd.AddCommand(list, export)
	return cmd
}

func newDashboardCmd(get func() *app, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show a summary of the site content",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			user, _ := a.session.User()
			d := projections.QueryGetDashboard(ctx, projections.GetDashboardQuery{User: user}, projections.GetDashboardDeps{
				Subscribers: a.api,
				Capsules:    a.api,
				Catalog:     a.api,
			})
			if root.json {
				return printJSON(cmd.OutOrStdout(), d)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", d.Greeting)
			if d.Role != "" {
				fmt.Fprintf(w, "Rôle: %s\n", d.Role)
			}
			tw := newTable(w)
			fmt.Fprintf(tw, "Abonnés\t%s\n", count(d.Subscribers))
			fmt.Fprintf(tw, "Capsules\t%s\n", count(d.Capsules))
			for _, k := range sortedKeys(domainCounts(d)) {
				fmt.Fprintf(tw, "Activités %s\t%s\n", k, count(domainCounts(d)[k]))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, warn := range d.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "attention:", warn)
			}
			return nil
		}),
	}
}

func domainCounts(d projections.Dashboard) map[string]int {
	out := make(map[string]int, len(d.Activities))
	for k, v := range d.Activities {
		out[string(k)] = v
	}
	return out
}

func count(n int) string {
	if n < 0 {
		return "indisponible"
	}
	return fmt.Sprint(n)
}
