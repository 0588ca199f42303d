// Package services contains server-side business logic. This file implements
// AccountService: registration with argon2id hashing, lookups, listing and
// deletion, reporting input problems as field errors.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/miretia/internal/common"
	"github.com/dmitrijs2005/miretia/internal/logging"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/dmitrijs2005/miretia/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/miretia/internal/server/validation"
	"github.com/google/uuid"
)

const (
	MsgAlreadyExists      = "Username/email already exists."
	MsgNoUserWithID       = "No user with corresponding ID."
	MsgNoUserWithEmail    = "No user with corresponding email."
	MsgNoUserWithUsername = "No user with corresponding username."
)

// RegistrationOutcome labels how a Register call ended.
type RegistrationOutcome string

const (
	OutcomeCreated  RegistrationOutcome = "created"
	OutcomeInvalid  RegistrationOutcome = "invalid"
	OutcomeConflict RegistrationOutcome = "conflict"
	OutcomeError    RegistrationOutcome = "error"
)

// PasswordHasher turns a plaintext password into an encoded hash.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// RegistrationObserver is told the outcome of every Register call.
type RegistrationObserver interface {
	ObserveRegistration(outcome RegistrationOutcome)
}

type nopObserver struct{}

func (nopObserver) ObserveRegistration(RegistrationOutcome) {}

// Option configures an AccountService.
type Option func(*AccountService)

// WithRegistrationObserver reports Register outcomes to o.
func WithRegistrationObserver(o RegistrationObserver) Option {
	return func(s *AccountService) {
		if o != nil {
			s.observer = o
		}
	}
}

// AccountService is stateless apart from its collaborators and safe for
// concurrent use.
type AccountService struct {
	repo     accounts.Repository
	hasher   PasswordHasher
	log      logging.Logger
	observer RegistrationObserver
}

func NewAccountService(repo accounts.Repository, hasher PasswordHasher, log logging.Logger, opts ...Option) *AccountService {
	if log == nil {
		log = logging.Nop()
	}
	s := &AccountService{
		repo:     repo,
		hasher:   hasher,
		log:      log.With("module", "accounts"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates in, hashes the password and creates the account.
// Validation failures and uniqueness conflicts come back as field errors;
// any other failure is returned as error.
func (s *AccountService) Register(ctx context.Context, in models.RegistrationInput) (*models.AccountResult, error) {
	if errs := validation.ValidateRegister(in); len(errs) > 0 {
		s.observer.ObserveRegistration(OutcomeInvalid)
		s.log.Debug(ctx, "registration rejected", "input", in, "field", errs[0].Field)
		return &models.AccountResult{Errors: errs}, nil
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.observer.ObserveRegistration(OutcomeError)
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account, err := s.repo.Create(ctx, models.NewAccount{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		var uv *common.UniqueViolationError
		if errors.As(err, &uv) {
			s.observer.ObserveRegistration(OutcomeConflict)
			s.log.Info(ctx, "registration conflict", "input", in, "constraint", uv.Field)
			return singleError("username", MsgAlreadyExists), nil
		}
		s.observer.ObserveRegistration(OutcomeError)
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.observer.ObserveRegistration(OutcomeCreated)
	s.log.Info(ctx, "account registered", "id", account.ID, "username", account.Username)
	return &models.AccountResult{Account: account}, nil
}

// GetByID looks an account up by id. An id that is not a UUID cannot exist
// and is reported as not found without touching the store.
func (s *AccountService) GetByID(ctx context.Context, id string) (*models.AccountResult, error) {
	id, ok := canonicalID(id)
	if !ok {
		return singleError("id", MsgNoUserWithID), nil
	}
	return s.lookup(ctx, s.repo.GetByID, id, "id", MsgNoUserWithID)
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.AccountResult, error) {
	return s.lookup(ctx, s.repo.GetByEmail, email, "email", MsgNoUserWithEmail)
}

func (s *AccountService) GetByUsername(ctx context.Context, username string) (*models.AccountResult, error) {
	return s.lookup(ctx, s.repo.GetByUsername, username, "username", MsgNoUserWithUsername)
}

func (s *AccountService) lookup(
	ctx context.Context,
	get func(context.Context, string) (*models.Account, error),
	key, field, notFound string,
) (*models.AccountResult, error) {
	account, err := get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return singleError(field, notFound), nil
		}
		return nil, fmt.Errorf("error looking up account by %s: %w", field, err)
	}
	return &models.AccountResult{Account: account}, nil
}

// List returns every account in store order.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	if list == nil {
		list = []models.Account{}
	}
	return list, nil
}

// Delete removes the account with the given id.
func (s *AccountService) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	id, ok := canonicalID(id)
	if !ok {
		return &models.DeleteResult{Errors: []models.FieldError{{Field: "id", Message: MsgNoUserWithID}}}, nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error deleting account: %w", err)
	}
	if !deleted {
		return &models.DeleteResult{Errors: []models.FieldError{{Field: "id", Message: MsgNoUserWithID}}}, nil
	}

	s.log.Info(ctx, "account deleted", "id", id)
	return &models.DeleteResult{Deleted: true}, nil
}

// canonicalID returns id in the lowercase hyphenated form the stores use.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func singleError(field, message string) *models.AccountResult {
	return &models.AccountResult{Errors: []models.FieldError{{Field: field, Message: message}}}
}
