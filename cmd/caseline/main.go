package main

import (
	"bufio"
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"caseline/internal/app"
	"caseline/internal/config"
	"caseline/internal/contacts"
	"caseline/internal/model"
	"caseline/internal/remote"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a CaselineApp. The caller must defer
// app.Close().
func newApp(ctx context.Context) (*app.CaselineApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewCaselineApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// resolveOrg returns the --org flag value, falling back to the first
// configured org.
func resolveOrg(cmd *cobra.Command, a *app.CaselineApp) (string, error) {
	org, _ := cmd.Flags().GetString("org")
	if org != "" {
		return org, nil
	}
	return a.DefaultOrg()
}

// readPassphrase prompts for a passphrase. With confirm set, it prompts a
// second time and requires both entries to match.
func readPassphrase(prompt string, confirm bool) (string, error) {
	pass, err := promptSecret(prompt)
	if err != nil {
		return "", err
	}
	if pass == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	if confirm {
		again, err := promptSecret("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if pass != again {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return pass, nil
}

// promptSecret reads a secret without echoing. When stdin is not a terminal
// (pipes, tests), it falls back to reading a line.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseOnOff converts the CLI's on/off argument to a bool.
func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

var rootCmd = &cobra.Command{
	Use:   "caseline",
	Short: "Contact sync tool for messaging-platform casework",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Add your platform base_url and org tokens, then run 'caseline config keygen'.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Remote:   %s\n", cfg.Remote.BaseURL)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("Vault:    %s\n", cfg.Vault.Type)
		fmt.Printf("Spool:    %s\n", cfg.Spool.Type)
		fmt.Println("Orgs:")
		for _, o := range cfg.Orgs {
			fmt.Printf("  %s\n", o.Name)
		}
		return nil
	},
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the export encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.EncryptionConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		pass, err := readPassphrase("Passphrase for the export key: ", true)
		if err != nil {
			return err
		}
		if err := a.SetupEncryption(pass); err != nil {
			return err
		}

		fmt.Println("Export key pair generated.")
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull fields, groups and contacts from the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		var opt app.SyncOptions
		if afterStr, _ := cmd.Flags().GetString("after"); afterStr != "" {
			opt.After, err = time.Parse(time.RFC3339, afterStr)
			if err != nil {
				return fmt.Errorf("parsing --after: %w", err)
			}
		}
		if beforeStr, _ := cmd.Flags().GetString("before"); beforeStr != "" {
			opt.Before, err = time.Parse(time.RFC3339, beforeStr)
			if err != nil {
				return fmt.Errorf("parsing --before: %w", err)
			}
		}
		opt.ContactsOnly, _ = cmd.Flags().GetBool("contacts-only")
		opt.IncludeURNs, _ = cmd.Flags().GetBool("urns")

		var fetched int
		opt.Progress = func(synced int) {
			fetched = synced
			fmt.Printf("\rFetched %d contact snapshots...", synced)
		}

		summary, err := a.PullAll(cmd.Context(), org, opt)
		if fetched > 0 {
			fmt.Println()
		}
		if summary != nil {
			printCounts("fields", summary.Fields)
			printCounts("groups", summary.Groups)
			printCounts("contacts", summary.Contacts)
		}
		return err
	},
}

func printCounts(kind string, c *contacts.Counts) {
	if c == nil {
		return
	}
	fmt.Printf("%-9s %d created, %d updated, %d deleted\n", kind+":", c.Created, c.Updated, c.Deleted)
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the org's local sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		st, err := a.Status(org)
		if err != nil {
			return err
		}

		fmt.Printf("Org:      %s\n", st.Org)
		fmt.Printf("Contacts: %d active (%d stubs)\n", st.ActiveContacts, st.StubContacts)
		fmt.Printf("Groups:   %d active (%d visible)\n", st.ActiveGroups, st.VisibleGroups)
		fmt.Printf("Fields:   %d active (%d visible)\n", st.ActiveFields, st.VisibleFields)
		fmt.Printf("Spooled exports: %d\n", st.SpooledExports)
		for _, kind := range []string{model.SyncKindContacts, model.SyncKindGroups, model.SyncKindFields} {
			run, ok := st.LastRuns[kind]
			if !ok {
				continue
			}
			fmt.Printf("Last %s sync: %s (%s)\n", kind,
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Status)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		runs, err := a.History(org, kind, limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if !run.FinishedAt.IsZero() {
				duration = run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-8s  %-7s  %3d created  %3d updated  %3d deleted  %s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Kind, run.Status,
				run.Created, run.Updated, run.Deleted, duration)
			if run.Error != "" {
				fmt.Printf("    error: %s\n", run.Error)
			}
		}
		return nil
	},
}

// contacts command
var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect and manage contacts",
}

var contactsShowCmd = &cobra.Command{
	Use:   "show UUID",
	Short: "Show one contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		detail, err := a.ShowContact(org, args[0])
		if err != nil {
			return err
		}

		c := detail.Contact
		state := "active"
		if !c.IsActive {
			state = "inactive"
		}
		if c.IsStub {
			state += ", stub"
		}

		fmt.Printf("UUID:     %s\n", c.UUID)
		fmt.Printf("Name:     %s\n", c.Name)
		fmt.Printf("Language: %s\n", c.Language)
		fmt.Printf("State:    %s\n", state)
		fmt.Printf("URNs:     %s\n", strings.Join(c.URNs, ", "))
		fmt.Printf("Groups:   %s\n", strings.Join(groupNames(c.Groups), ", "))
		if len(c.SuspendedGroups) > 0 {
			fmt.Printf("Suspended from: %s\n", strings.Join(groupNames(c.SuspendedGroups), ", "))
		}
		for _, key := range slices.Sorted(maps.Keys(detail.VisibleFields)) {
			fmt.Printf("  %s: %s\n", key, detail.VisibleFields[key])
		}
		return nil
	},
}

var contactsEnsureCmd = &cobra.Command{
	Use:   "ensure UUID",
	Short: "Create a stub contact if none exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		contact, err := a.EnsureContact(cmd.Context(), org, args[0], name)
		if err != nil {
			return err
		}

		if contact.IsStub {
			fmt.Printf("Stub contact %s ready\n", contact.UUID)
		} else {
			fmt.Printf("Contact %s already synced\n", contact.UUID)
		}
		return nil
	},
}

var contactsReleaseCmd = &cobra.Command{
	Use:   "release UUID",
	Short: "Clear a contact's memberships and deactivate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.ReleaseContact(org, args[0]); err != nil {
			return err
		}
		fmt.Printf("Contact %s released\n", args[0])
		return nil
	},
}

var contactsSuspendCmd = &cobra.Command{
	Use:   "suspend UUID",
	Short: "Take a contact out of its suspend-from groups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.SuspendContact(cmd.Context(), org, args[0]); err != nil {
			return err
		}
		fmt.Printf("Contact %s suspended from its groups\n", args[0])
		return nil
	},
}

var contactsRestoreCmd = &cobra.Command{
	Use:   "restore UUID",
	Short: "Put a contact back into its parked groups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.RestoreContact(cmd.Context(), org, args[0]); err != nil {
			return err
		}
		fmt.Printf("Contact %s restored to its groups\n", args[0])
		return nil
	},
}

var contactsReconcileCmd = &cobra.Command{
	Use:   "reconcile UUID",
	Short: "Merge a contact's remote snapshot into the local record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		contact, err := a.ReconcileContact(cmd.Context(), org, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Contact %s reconciled: %s, %d group(s)\n",
			contact.UUID, contact.Name, len(contact.Groups))
		return nil
	},
}

// groups command
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Inspect and manage groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the org's active groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		groups, err := a.Groups(org)
		if err != nil {
			return err
		}

		if len(groups) == 0 {
			fmt.Println("No groups synced.")
			return nil
		}

		for _, g := range groups {
			var flags []string
			if g.IsVisible {
				flags = append(flags, "visible")
			}
			if g.SuspendFrom {
				flags = append(flags, "suspend-from")
			}
			fmt.Printf("%s  %-25s  %6d  %s\n", g.UUID, g.Name, g.Count, strings.Join(flags, ","))
		}
		return nil
	},
}

var groupsMarkSuspendCmd = &cobra.Command{
	Use:   "mark-suspend UUID on|off",
	Short: "Flag whether contacts leave this group while suspended",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.SetGroupSuspendFrom(org, args[0], on); err != nil {
			return err
		}
		fmt.Printf("Group %s suspend-from set to %s\n", args[0], args[1])
		return nil
	},
}

var groupsSetVisibleCmd = &cobra.Command{
	Use:   "set-visible UUID on|off",
	Short: "Flag whether partners see this group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.SetGroupVisible(org, args[0], on); err != nil {
			return err
		}
		fmt.Printf("Group %s visibility set to %s\n", args[0], args[1])
		return nil
	},
}

// fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect and manage fields",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the org's active fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		fields, err := a.Fields(org)
		if err != nil {
			return err
		}

		if len(fields) == 0 {
			fmt.Println("No fields synced.")
			return nil
		}

		for _, f := range fields {
			visible := ""
			if f.IsVisible {
				visible = "visible"
			}
			fmt.Printf("%-20s  %-25s  %s  %s\n", f.Key, f.Label, f.ValueType, visible)
		}
		return nil
	},
}

var fieldsSetVisibleCmd = &cobra.Command{
	Use:   "set-visible KEY on|off",
	Short: "Flag whether partners see this field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		if err := a.SetFieldVisible(org, args[0], on); err != nil {
			return err
		}
		fmt.Printf("Field %s visibility set to %s\n", args[0], args[1])
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build, push and fetch contact exports",
}

var exportBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a CSV export and spool it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		export, err := a.BuildExport(org)
		if err != nil {
			return err
		}
		fmt.Printf("Export %s built (%d bytes), spooled for push\n", export.ID, export.Size)
		return nil
	},
}

var exportPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Encrypt spooled exports and upload them to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		pushed, err := a.PushExports(cmd.Context(), org)
		if err != nil {
			return err
		}
		fmt.Printf("Pushed %d export(s)\n", pushed)
		return nil
	},
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the org's exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		exports, err := a.Exports(org, 0)
		if err != nil {
			return err
		}

		if len(exports) == 0 {
			fmt.Println("No exports built.")
			return nil
		}

		for _, e := range exports {
			fmt.Printf("%s  %s  %-7s  %8d bytes\n",
				e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Status, e.Size)
		}
		return nil
	},
}

var exportFetchCmd = &cobra.Command{
	Use:   "fetch ID",
	Short: "Download and decrypt a pushed export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		org, err := resolveOrg(cmd, a)
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase for the export key: ", false)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		if err := a.FetchExport(cmd.Context(), org, args[0], pass, f); err != nil {
			f.Close()
			os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}

		fmt.Printf("Export %s written to %s\n", args[0], out)
		return nil
	},
}

func groupNames(groups []remote.Group) []string {
	names := make([]string, len(groups))
	for i := 0; i < len(groups); i++ {
		names[i] = groups[i].Name
	}
	return names
}

func init() {
	rootCmd.PersistentFlags().StringP("org", "o", "", "Org name (default: first configured org)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)

	// contacts subcommands
	contactsCmd.AddCommand(contactsShowCmd)
	contactsCmd.AddCommand(contactsEnsureCmd)
	contactsEnsureCmd.Flags().String("name", "", "Display name for a newly created stub")
	contactsCmd.AddCommand(contactsReleaseCmd)
	contactsCmd.AddCommand(contactsSuspendCmd)
	contactsCmd.AddCommand(contactsRestoreCmd)
	contactsCmd.AddCommand(contactsReconcileCmd)

	// groups subcommands
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsMarkSuspendCmd)
	groupsCmd.AddCommand(groupsSetVisibleCmd)

	// fields subcommands
	fieldsCmd.AddCommand(fieldsListCmd)
	fieldsCmd.AddCommand(fieldsSetVisibleCmd)

	// export subcommands
	exportCmd.AddCommand(exportBuildCmd)
	exportCmd.AddCommand(exportPushCmd)
	exportCmd.AddCommand(exportListCmd)
	exportCmd.AddCommand(exportFetchCmd)
	exportFetchCmd.Flags().String("out", "", "Path to write the decrypted CSV to")
	exportFetchCmd.MarkFlagRequired("out")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("after", "", "Only pull contacts modified at or after this RFC3339 time")
	syncCmd.Flags().String("before", "", "Only pull contacts modified at or before this RFC3339 time")
	syncCmd.Flags().Bool("contacts-only", false, "Skip the field and group pulls")
	syncCmd.Flags().Bool("urns", false, "Count URN changes when deciding whether a contact needs an update")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("kind", "", "Filter to one run kind: contacts, groups or fields")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(exportCmd)
}
