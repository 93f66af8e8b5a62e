// ABOUTME: Lead CLI commands
// ABOUTME: Search, list, inspect and update leads from the shell
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/handlers"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/views"
)

func (e *env) searchCmd() *cobra.Command {
	var (
		req   app.SearchRequest
		pages int
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [category]",
		Short: "Search an area for businesses of one category (or 'all')",
		Args:  cobra.ExactArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			req.Category = args[0]
			res, err := a.Search(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s: %w", places.UserMessage(err), err)
			}
			found, added := res.Found, res.Added
			for page := 1; page < pages && res.HasMore; page++ {
				if res, err = a.LoadMore(cmd.Context()); err != nil {
					return fmt.Errorf("%s: %w", places.UserMessage(err), err)
				}
				found += res.Found
				added += res.Added
			}

			out := cmd.OutOrStdout()
			success(out, "Found %d %s (%d new)", found, strings.ToLower(places.CategoryLabel(req.Category)), added)
			if res.HasMore {
				fmt.Fprintln(out, faint.Sprint("  more results available; use --pages to load them"))
			}
			leads := a.Leads(views.Filters{}, views.SortScore)
			printLeads(out, leads[:min(limit, len(leads))])
			return nil
		}),
	}
	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "Latitude of the search center")
	cmd.Flags().Float64Var(&req.Lng, "lng", 0, "Longitude of the search center")
	cmd.Flags().Float64Var(&req.Radius, "radius", 0, "Radius in meters (default: places.defaultRadius)")
	cmd.Flags().StringVar(&req.Text, "text", "", "Extra query text, e.g. a neighborhood")
	cmd.Flags().IntVar(&pages, "pages", 1, "Result pages to load")
	cmd.Flags().IntVar(&limit, "limit", 25, "Rows to print")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func (e *env) listCmd() *cobra.Command {
	var (
		in     handlers.ListLeadsInput
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads visible to you",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			f, sort, err := handlers.FiltersFrom(in)
			if err != nil {
				return err
			}
			leads := a.Leads(f, sort)
			if in.Limit > 0 {
				leads = leads[:min(in.Limit, len(leads))]
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(leads)
			}
			printLeads(cmd.OutOrStdout(), leads)
			return nil
		}),
	}
	fl := cmd.Flags()
	fl.StringVar(&in.Search, "search", "", "Match name, address or phone")
	fl.StringVar(&in.Status, "status", "", "Only this status")
	fl.StringVar(&in.Sort, "sort", "", "Sort order (newest, name, reviews-low, score, ...)")
	fl.StringVar(&in.Member, "member", "", "Only leads involving this team member")
	fl.StringVar(&in.Activity, "activity", "", "called, not-called or called-today")
	fl.StringVar(&in.Period, "period", "", "today, yesterday, week or month")
	fl.BoolVar(&in.NoWebsite, "no-website", false, "Only businesses without a website")
	fl.BoolVar(&in.NoPhone, "no-phone", false, "Only businesses without a phone")
	fl.BoolVar(&in.NotCalled, "not-called", false, "Only NEW leads")
	fl.BoolVar(&in.OnlyLeads, "leads", false, "Only marked sales leads")
	fl.IntVar(&in.MaxReviews, "max-reviews", 0, "Exclude businesses with more reviews")
	fl.IntVar(&in.Limit, "limit", 0, "Maximum rows")
	fl.BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (e *env) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one lead with its call history",
		Args:  cobra.ExactArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			l, err := a.Lead(args[0])
			if err != nil {
				return err
			}
			printLead(cmd.OutOrStdout(), l)
			return nil
		}),
	}
}

func (e *env) addCmd() *cobra.Command {
	var in intake.Manual
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a lead by hand",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			l, err := a.AddManual(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to add lead: %w", err)
			}
			success(cmd.OutOrStdout(), "Added lead %s (ID: %s)", l.Name, l.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Business name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Address, "address", "", "Street address")
	cmd.Flags().StringVar(&in.Website, "website", "", "Website")
	cmd.Flags().StringVar(&in.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&in.BusinessType, "type", "", "Business category")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (e *env) addSocialCmd() *cobra.Command {
	var (
		in   intake.Social
		file string
		name string
	)
	cmd := &cobra.Command{
		Use:   "add-social",
		Short: "Add a lead from a pasted social media post (stdin or --file)",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("failed to read post: %w", err)
			}
			if strings.TrimSpace(string(text)) == "" {
				return fmt.Errorf("post text is empty")
			}

			in.SocialPost = intake.ParseSocialPost(string(text))
			if name != "" {
				in.Name = name
			}
			l, err := a.AddSocial(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to add lead: %w", err)
			}
			success(cmd.OutOrStdout(), "Added lead %s (ID: %s)", l.Name, l.ID)
			if l.Phone != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Phone: %s\n", l.Phone)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&file, "file", "", "Read the post from this file")
	cmd.Flags().StringVar(&name, "name", "", "Business name when the post's first line is not it")
	cmd.Flags().StringVar(&in.Group, "group", "", "Group or page the post came from")
	cmd.Flags().StringVar(&in.BusinessType, "type", "", "Business category")
	return cmd
}

func (e *env) noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [id] [text...]",
		Short: "Append a timestamped note",
		Args:  cobra.MinimumNArgs(2),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			l, err := a.AddNote(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Added note to %s", l.Name)
			return nil
		}),
	}
}

func (e *env) callCmd() *cobra.Command {
	var outcome, notes, status string
	cmd := &cobra.Command{
		Use:   "call [id]",
		Short: "Log a call",
		Args:  cobra.ExactArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			var st models.Status
			if status != "" {
				var err error
				if st, err = models.ParseStatus(status); err != nil {
					return err
				}
			}
			l, err := a.LogCall(args[0], outcome, notes)
			if err != nil {
				return err
			}
			if st != "" {
				if l, err = a.SetStatus(args[0], st); err != nil {
					return err
				}
			}
			success(cmd.OutOrStdout(), "Logged call to %s (%d total, status %s)", l.Name, len(l.CallHistory), l.Status.Label())
			return nil
		}),
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "What happened (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "Call notes")
	cmd.Flags().StringVar(&status, "status", "", "Also move the lead to this status")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func (e *env) setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status [status] [id...]",
		Short: "Move leads to a pipeline status",
		Args:  cobra.MinimumNArgs(2),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			st, err := models.ParseStatus(args[0])
			if err != nil {
				return err
			}
			n, err := a.BulkStatus(args[1:], st)
			success(cmd.OutOrStdout(), "Moved %d lead(s) to %s", n, st.Label())
			return err
		}),
	}
}

func (e *env) assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign [id] [member]",
		Short: "Assign a lead to a team member (omit member to unassign)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			member := ""
			if len(args) == 2 {
				member = args[1]
			}
			l, err := a.Assign(args[0], member)
			if err != nil {
				return err
			}
			if member == "" {
				success(cmd.OutOrStdout(), "Unassigned %s", l.Name)
			} else {
				success(cmd.OutOrStdout(), "Assigned %s to %s", l.Name, member)
			}
			return nil
		}),
	}
}

func (e *env) markCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark [id...]",
		Short: "Mark businesses as sales leads",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			n, err := a.BulkMark(args)
			success(cmd.OutOrStdout(), "Marked %d lead(s)", n)
			return err
		}),
	}
}

func (e *env) unmarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmark [id]",
		Short: "Remove the sales lead mark",
		Args:  cobra.ExactArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			l, err := a.SetLead(args[0], false)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Unmarked %s", l.Name)
			return nil
		}),
	}
}

func (e *env) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete leads for everyone",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			n, err := a.BulkDelete(cmd.Context(), args)
			success(cmd.OutOrStdout(), "Deleted %d lead(s)", n)
			return err
		}),
	}
}

func (e *env) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every lead (admin only)",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			n, err := a.ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Cleared %d lead(s)", n)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting everything")
	return cmd
}

func (e *env) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pipeline and team stats as JSON",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.Stats())
		}),
	}
}
