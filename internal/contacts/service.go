package contacts

import (
	"context"
	"errors"
	"fmt"

	"caseline/internal/model"
	"caseline/internal/remote"
)

// ErrNotFound means a local record the operation needs does not exist.
var ErrNotFound = errors.New("not found")

// RecordAdapter distills a remote snapshot into the payload stored locally.
// A nil seed excludes the contact from local storage (for example blocked
// contacts); an error aborts the surrounding operation.
type RecordAdapter func(org string, rc remote.Contact) (*model.ContactSeed, error)

// Service is the orchestration layer that coordinates the remote platform,
// local storage, locking and the export pipeline for the CLI's operations.
type Service struct {
	database    Database
	remote      Remote
	adapter     RecordAdapter
	locker      Locker
	vault       Vault
	spool       Spool
	encryptor   Encryptor
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	mutexGroups [][]string
}

// ServiceDeps bundles the collaborators a Service needs. Adapter, Logger,
// Clock and IDGen may be left nil to get the standard implementations.
type ServiceDeps struct {
	Database  Database
	Remote    Remote
	Adapter   RecordAdapter
	Locker    Locker
	Vault     Vault
	Spool     Spool
	Encryptor Encryptor
	Logger    Logger
	Clock     Clock
	IDGen     IDGenerator

	// MutexGroups lists mutually-exclusive group sets, by group UUID,
	// honored when contact snapshots are merged.
	MutexGroups [][]string
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps ServiceDeps) *Service {
	if deps.Adapter == nil {
		deps.Adapter = model.SeedFromRemote
	}
	if deps.Logger == nil {
		deps.Logger = NewNopLogger()
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.IDGen == nil {
		deps.IDGen = UUIDGenerator{}
	}
	return &Service{
		database:    deps.Database,
		remote:      deps.Remote,
		adapter:     deps.Adapter,
		locker:      deps.Locker,
		vault:       deps.Vault,
		spool:       deps.Spool,
		encryptor:   deps.Encryptor,
		logger:      deps.Logger,
		clock:       deps.Clock,
		idgen:       deps.IDGen,
		mutexGroups: deps.MutexGroups,
	}
}

func contactLockKey(org, uuid string) string {
	return fmt.Sprintf("contact:%s:%s", org, uuid)
}

// EnsureContact returns the org's contact with the given identity, creating
// a stub record when none exists yet. Used when handling inbound messages
// from contacts that have not been synced. Existing records come back as
// they are, active or not.
func (s *Service) EnsureContact(ctx context.Context, org, uuid, name string) (*model.Contact, error) {
	release, err := s.locker.Acquire(ctx, contactLockKey(org, uuid))
	if err != nil {
		return nil, fmt.Errorf("locking contact %s: %w", uuid, err)
	}
	defer release()

	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return nil, fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact != nil {
		return contact, nil
	}

	contact = &model.Contact{
		ID:        s.idgen.New(),
		OrgID:     org,
		UUID:      uuid,
		Name:      name,
		IsActive:  true,
		IsStub:    true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreateContact(contact); err != nil {
		return nil, fmt.Errorf("creating stub contact %s: %w", uuid, err)
	}

	s.logger.Info("stub contact created", "org", org, "uuid", uuid)
	return contact, nil
}

// ReleaseContact clears the contact's group memberships, parked ones
// included, and deactivates the local record. Nothing is pushed to the
// platform.
func (s *Service) ReleaseContact(org, uuid string) error {
	contact, err := s.database.FindContact(org, uuid)
	if err != nil {
		return fmt.Errorf("finding contact %s: %w", uuid, err)
	}
	if contact == nil {
		return fmt.Errorf("contact %s: %w", uuid, ErrNotFound)
	}

	contact.Groups = nil
	contact.SuspendedGroups = nil
	contact.IsActive = false
	if err := s.database.UpdateContact(contact); err != nil {
		return fmt.Errorf("releasing contact %s: %w", uuid, err)
	}

	s.logger.Info("contact released", "org", org, "uuid", uuid)
	return nil
}
