package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"caseline/internal/config"
	"caseline/internal/contacts"
	"caseline/internal/database"
	"caseline/internal/encryption"
	"caseline/internal/locks"
	"caseline/internal/model"
	"caseline/internal/remote"
	"caseline/internal/spool"
	"caseline/internal/vault"
)

// CaselineApp is the application layer between the CLI and the contact
// service. It constructs all dependencies from config, exposes high-level
// operations keyed by org name, and manages resource lifecycles on Close.
type CaselineApp struct {
	cfg       *config.Config
	db        contacts.Database
	vault     contacts.Vault
	spool     contacts.Spool
	encryptor contacts.Encryptor
	locker    *locks.KeyedMutex
	logger    *slog.Logger
	logFile   *os.File
	services  map[string]*contacts.Service
}

// NewCaselineApp creates a fully wired CaselineApp from the given config.
// The caller must call Close when done.
func NewCaselineApp(ctx context.Context, cfg *config.Config) (*CaselineApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	sp, err := spool.NewSpoolFromConfig(cfg.Spool)
	if err != nil {
		return nil, fmt.Errorf("creating spool: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &CaselineApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		spool:     sp,
		encryptor: enc,
		locker:    locks.NewKeyedMutex(),
		logger:    logger,
		logFile:   logFile,
		services:  make(map[string]*contacts.Service),
	}, nil
}

// DefaultOrg returns the first configured org's name, used when the CLI's
// --org flag is not given.
func (a *CaselineApp) DefaultOrg() (string, error) {
	if len(a.cfg.Orgs) == 0 {
		return "", fmt.Errorf("no orgs configured")
	}
	return a.cfg.Orgs[0].Name, nil
}

// Service returns the contact service for the named org, constructing it on
// first use. The org must be present in the configuration.
func (a *CaselineApp) Service(org string) (*contacts.Service, error) {
	if svc, ok := a.services[org]; ok {
		return svc, nil
	}

	oc := a.cfg.Org(org)
	if oc == nil {
		return nil, fmt.Errorf("org %q is not configured", org)
	}
	if a.cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote base_url not configured")
	}

	var opts []remote.Option
	if a.cfg.Remote.PageRetries > 0 {
		opts = append(opts, remote.WithPageRetries(a.cfg.Remote.PageRetries))
	}
	client := remote.NewClient(a.cfg.Remote.BaseURL, oc.Token, opts...)

	svc := contacts.NewService(contacts.ServiceDeps{
		Database:    a.db,
		Remote:      client,
		Locker:      a.locker,
		Vault:       a.vault,
		Spool:       a.spool,
		Encryptor:   a.encryptor,
		Logger:      &slogAdapter{l: a.logger},
		MutexGroups: a.cfg.Sync.MutexGroups,
	})
	a.services[org] = svc
	return svc, nil
}

// SyncOptions bound and tune one sync invocation.
type SyncOptions struct {
	// After and Before restrict the contact pull to a modification window.
	After  time.Time
	Before time.Time

	// ContactsOnly skips the field and group pulls.
	ContactsOnly bool

	// IncludeURNs forces URN comparison on for this run even when the
	// config leaves it off.
	IncludeURNs bool

	// Progress receives the cumulative number of fetched contact
	// snapshots after each batch.
	Progress func(synced int)
}

// SyncSummary reports what one sync invocation changed, per record kind.
// A nil entry means that kind was not pulled.
type SyncSummary struct {
	Fields   *contacts.Counts
	Groups   *contacts.Counts
	Contacts *contacts.Counts
}

// PullAll mirrors the org's remote state into local storage: fields, then
// groups, then contacts, so that the contact pull can scope its change
// detection to the group and field sets that were just synced. Every pull is
// recorded as a sync run, inserted as running first and finalized with its
// counts when done.
func (a *CaselineApp) PullAll(ctx context.Context, org string, opt SyncOptions) (*SyncSummary, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{}
	if !opt.ContactsOnly {
		fields, err := a.recordRun(org, model.SyncKindFields, func() (contacts.Counts, error) {
			return svc.PullFields(ctx, org)
		})
		summary.Fields = &fields
		if err != nil {
			return summary, err
		}

		groups, err := a.recordRun(org, model.SyncKindGroups, func() (contacts.Counts, error) {
			return svc.PullGroups(ctx, org)
		})
		summary.Groups = &groups
		if err != nil {
			return summary, err
		}
	}

	groupScope, fieldScope, err := a.visibleScopes(org)
	if err != nil {
		return summary, err
	}

	pullOpt := contacts.PullOptions{
		After:       opt.After,
		Before:      opt.Before,
		IncludeURNs: a.cfg.Sync.IncludeURNs || opt.IncludeURNs,
		Groups:      groupScope,
		Fields:      fieldScope,
		Progress:    opt.Progress,
	}
	cc, err := a.recordRun(org, model.SyncKindContacts, func() (contacts.Counts, error) {
		return svc.PullContacts(ctx, org, pullOpt)
	})
	summary.Contacts = &cc
	return summary, err
}

// visibleScopes returns the org's visible group UUIDs and field keys for
// scoping contact change detection. Both come back non-nil even when empty;
// a nil scope would disable scoping entirely.
func (a *CaselineApp) visibleScopes(org string) (groups, fields []string, err error) {
	gs, err := a.db.GetGroups(org)
	if err != nil {
		return nil, nil, fmt.Errorf("listing groups: %w", err)
	}
	fs, err := a.db.GetFields(org)
	if err != nil {
		return nil, nil, fmt.Errorf("listing fields: %w", err)
	}

	groups = make([]string, 0, len(gs))
	for _, g := range gs {
		if g.IsVisible {
			groups = append(groups, g.UUID)
		}
	}
	fields = make([]string, 0, len(fs))
	for _, f := range fs {
		if f.IsVisible {
			fields = append(fields, f.Key)
		}
	}
	return groups, fields, nil
}

// recordRun wraps one pull in a sync run record: inserted as running before
// the pull starts, finalized with its counts and outcome after.
func (a *CaselineApp) recordRun(org, kind string, pull func() (contacts.Counts, error)) (contacts.Counts, error) {
	run := &model.SyncRun{
		ID:        uuid.New().String(),
		OrgID:     org,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		Status:    model.RunStatusRunning,
	}
	if err := a.db.CreateSyncRun(run); err != nil {
		return contacts.Counts{}, fmt.Errorf("recording %s run: %w", kind, err)
	}

	counts, err := pull()

	run.FinishedAt = time.Now().UTC()
	run.Created = counts.Created
	run.Updated = counts.Updated
	run.Deleted = counts.Deleted
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunStatusOK
	}
	if uerr := a.db.UpdateSyncRun(run); uerr != nil && err == nil {
		err = fmt.Errorf("finalizing %s run: %w", kind, uerr)
	}
	return counts, err
}

// Status reports the org's record counts and most recent sync runs.
func (a *CaselineApp) Status(org string) (*contacts.OrgStatus, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.OrgStatus(org)
}

// History returns the org's recent sync runs, newest first. kind filters to
// one record kind; empty covers all.
func (a *CaselineApp) History(org, kind string, limit int) ([]*model.SyncRun, error) {
	switch kind {
	case "", model.SyncKindContacts, model.SyncKindGroups, model.SyncKindFields:
	default:
		return nil, fmt.Errorf("unknown sync kind %q", kind)
	}
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.SyncHistory(org, kind, limit)
}

// ShowContact loads one contact with its field values filtered to the org's
// visible fields.
func (a *CaselineApp) ShowContact(org, uuid string) (*contacts.ContactDetail, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.ContactDetail(org, uuid)
}

// EnsureContact returns the org's contact with the given identity, creating
// a stub record when none exists yet.
func (a *CaselineApp) EnsureContact(ctx context.Context, org, uuid, name string) (*model.Contact, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.EnsureContact(ctx, org, uuid, name)
}

// ReleaseContact clears the contact's group memberships and deactivates the
// local record.
func (a *CaselineApp) ReleaseContact(org, uuid string) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.ReleaseContact(org, uuid)
}

// SuspendContact takes the contact out of its suspend-from groups on the
// platform, parking the memberships locally.
func (a *CaselineApp) SuspendContact(ctx context.Context, org, uuid string) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.SuspendFromGroups(ctx, org, uuid)
}

// RestoreContact puts the contact back into its parked groups on the
// platform.
func (a *CaselineApp) RestoreContact(ctx context.Context, org, uuid string) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.RestoreGroups(ctx, org, uuid)
}

// ReconcileContact fetches the contact's current remote snapshot, merges it
// with the local record, and persists the result.
func (a *CaselineApp) ReconcileContact(ctx context.Context, org, uuid string) (*model.Contact, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.ReconcileContact(ctx, org, uuid)
}

// Groups lists the org's active groups.
func (a *CaselineApp) Groups(org string) ([]*model.Group, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.Groups(org)
}

// Fields lists the org's active fields.
func (a *CaselineApp) Fields(org string) ([]*model.Field, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.Fields(org)
}

// SetGroupSuspendFrom flags whether contacts are pulled out of the group
// while suspended.
func (a *CaselineApp) SetGroupSuspendFrom(org, uuid string, suspendFrom bool) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.SetGroupSuspendFrom(org, uuid, suspendFrom)
}

// SetGroupVisible flags whether the group appears on contact displays and in
// exports.
func (a *CaselineApp) SetGroupVisible(org, uuid string, visible bool) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.SetGroupVisible(org, uuid, visible)
}

// SetFieldVisible flags whether the field appears on contact displays and in
// exports.
func (a *CaselineApp) SetFieldVisible(org, key string, visible bool) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	return svc.SetFieldVisible(org, key, visible)
}

// BuildExport builds a CSV export of the org's contacts and spools it for
// pushing.
func (a *CaselineApp) BuildExport(org string) (*model.Export, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.BuildExport(org)
}

// PushExports validates vault access, then drains the spool into the vault.
// The spool is shared, so pending exports from every org are pushed.
func (a *CaselineApp) PushExports(ctx context.Context, org string) (int, error) {
	svc, err := a.Service(org)
	if err != nil {
		return 0, err
	}
	if err := a.vault.ValidateSetup(ctx); err != nil {
		return 0, fmt.Errorf("validating vault: %w", err)
	}
	return svc.PushExports(ctx)
}

// Exports lists the org's exports, newest first.
func (a *CaselineApp) Exports(org string, limit int) ([]*model.Export, error) {
	svc, err := a.Service(org)
	if err != nil {
		return nil, err
	}
	return svc.Exports(org, limit)
}

// FetchExport unlocks the export key with the passphrase, then downloads the
// export from the vault and decrypts it into w.
func (a *CaselineApp) FetchExport(ctx context.Context, org, id, passphrase string, w io.Writer) error {
	svc, err := a.Service(org)
	if err != nil {
		return err
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking export key: %w", err)
	}
	return svc.FetchExport(ctx, org, id, dc, w)
}

// SetupEncryption generates the export key pair, protecting the private key
// with the passphrase. Refuses to overwrite existing keys.
func (a *CaselineApp) SetupEncryption(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	return nil
}

// EncryptionConfigured reports whether the export key pair exists.
func (a *CaselineApp) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Close releases the database and the log file.
func (a *CaselineApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
