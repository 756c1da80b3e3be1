package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/gateway"
	"github.com/abduss/certvault/internal/vault"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRegisterCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.password(password)
			if err != nil {
				return err
			}
			session, err := a.client.Register(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return err
			}
			if err := a.store.Save(session); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.password(password)
			if err != nil {
				return err
			}
			session, err := a.client.Login(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return err
			}
			if err := a.store.Save(session); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) password(flagValue string) (string, error) {
	if flagValue == "" {
		flagValue = a.v.GetString("password")
	}
	if flagValue == "" {
		var err error
		flagValue, err = readPassword(a.in, a.errOut, "Password: ")
		if err != nil {
			return "", err
		}
	}
	if flagValue == "" {
		return "", ErrNoPassword
	}
	return flagValue, nil
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.store.Load()
			if err == ErrNotSignedIn {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			if err != nil {
				return err
			}
			if err := a.client.Logout(cmd.Context(), session); err != nil && !gateway.IsUnauthorized(err) {
				zap.L().Warn("revoke refresh token", zap.Error(err))
			}
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, email, err := a.client.CurrentUser(cmd.Context(), session)
			if err != nil {
				if gateway.IsUnauthorized(err) {
					return ErrNotSignedIn
				}
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n", email, id)
			return nil
		},
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize your certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			library, err := a.library(cmd)
			if err != nil {
				return err
			}
			summary := vault.Summarize(library.Certificates(), a.now(), a.loc, recentLimit)

			fmt.Fprintf(a.out, "Total certificates: %d\n", summary.Total)
			fmt.Fprintf(a.out, "Added this month:   %d\n", summary.ThisMonth)
			if len(summary.Recent) == 0 {
				fmt.Fprintln(a.out, "\nNo certificates yet. Upload one with `certvault upload`.")
				return nil
			}
			fmt.Fprintln(a.out, "\nRecent:")
			return a.printTable(summary.Recent)
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates grouped by month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			library, err := a.library(cmd)
			if err != nil {
				return err
			}
			groups := library.Groups(query, a.loc)
			if len(groups) == 0 {
				if query != "" {
					fmt.Fprintf(a.out, "No certificates match %q\n", query)
				} else {
					fmt.Fprintln(a.out, "No certificates yet")
				}
				return nil
			}
			for i, group := range groups {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				fmt.Fprintf(a.out, "%s (%d)\n", group.Label, len(group.Certificates))
				if err := a.printTable(group.Certificates); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show titles or descriptions containing this text")
	return cmd
}

func newUploadCommand(a *app) *cobra.Command {
	var title, description, contentType string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a certificate file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat file: %w", err)
			}

			upload := vault.NewUpload(a.client, session, a.notifier(), vault.DefaultUploadPolicy())
			if err := upload.Select(vault.File{
				Name:        filepath.Base(args[0]),
				ContentType: contentType,
				Size:        info.Size(),
				Content:     f,
			}); err != nil {
				return reported(err)
			}
			if !upload.CanSubmit(title) {
				return fmt.Errorf("title is required")
			}

			cert, err := upload.Submit(cmd.Context(), title, description)
			if err != nil {
				return a.fail(err)
			}
			fmt.Fprintf(a.out, "ID:   %s\nLink: %s\n", cert.ID, cert.FileURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "certificate title")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	cmd.Flags().StringVar(&contentType, "type", "", "media type (detected from content when omitted)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEditCommand(a *app) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a certificate's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid certificate id %q", args[0])
			}
			library, err := a.library(cmd)
			if err != nil {
				return err
			}

			draft, err := library.BeginEdit(id)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			if cmd.Flags().Changed("description") {
				draft.Description = description
			}
			if err := library.SetDraft(draft.Title, draft.Description); err != nil {
				return err
			}
			if err := library.Save(cmd.Context()); err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description (empty clears it)")
	cmd.MarkFlagsOneRequired("title", "description")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a certificate and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid certificate id %q", args[0])
			}
			library, err := a.library(cmd)
			if err != nil {
				return err
			}

			deleted, err := library.Delete(cmd.Context(), id, func(c certificate.Certificate) bool {
				return yes || confirm(a.in, a.errOut, fmt.Sprintf("Delete %q?", c.Title))
			})
			if err != nil {
				if err == certificate.ErrCertificateNotFound {
					return err
				}
				return a.fail(err)
			}
			if !deleted {
				fmt.Fprintln(a.out, "Cancelled")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// library loads the signed-in user's certificates.
func (a *app) library(cmd *cobra.Command) (*vault.Library, error) {
	session, err := a.session(cmd.Context())
	if err != nil {
		return nil, err
	}
	library := vault.NewLibrary(a.client, session, a.notifier())
	if err := library.Load(cmd.Context()); err != nil {
		return nil, a.fail(err)
	}
	return library, nil
}

func (a *app) printTable(certs []certificate.Certificate) error {
	return writeTable(a.out, certs, a.loc)
}

func writeTable(out io.Writer, certs []certificate.Certificate, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTITLE\tFILE\tSIZE\tADDED")
	for _, c := range certs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Title, c.FileName, humanize.IBytes(uint64(max(c.FileSize, 0))), c.CreatedAt.In(loc).Format("2006-01-02"))
	}
	return tw.Flush()
}
