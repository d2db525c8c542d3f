package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SeedUser is a demo account created by the seed command
type SeedUser struct {
	Name     string `json:"name" koanf:"name"`
	Email    string `json:"email" koanf:"email"`
	Password string `json:"-" koanf:"password"`
}

// SeedUsersMessage requests the given users to exist
type SeedUsersMessage struct {
	Users []SeedUser `json:"users"`
}

func (e SeedUsersMessage) Type() string { return "users.seed" }

// SeedResult reports what a seed run changed
type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// SeedUsersHandler inserts seed users that do not exist yet. Running it
// again is a no-op for users already present.
type SeedUsersHandler struct {
	repo    RepositoryManager
	hasher  PasswordHasher
	timeout time.Duration
	logger  Logger
}

// NewSeedUsersHandler creates a handler. A nil hasher defaults to bcrypt.
func NewSeedUsersHandler(repo RepositoryManager, hasher PasswordHasher, logger Logger) *SeedUsersHandler {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	_, logger = ResolveLogger("auth.seed", nil, logger)
	return &SeedUsersHandler{
		repo:    repo,
		hasher:  hasher,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

func (h *SeedUsersHandler) Execute(ctx context.Context, event SeedUsersMessage) error {
	_, err := h.Seed(ctx, event)
	return err
}

// Seed runs the message in a single transaction
func (h *SeedUsersHandler) Seed(ctx context.Context, event SeedUsersMessage) (SeedResult, error) {
	select {
	case <-ctx.Done():
		return SeedResult{}, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user seed",
		)
	default:
		return h.seed(ctx, event)
	}
}

func (h *SeedUsersHandler) seed(ctx context.Context, event SeedUsersMessage) (SeedResult, error) {
	result := SeedResult{Created: []string{}, Skipped: []string{}}

	users := make([]*User, 0, len(event.Users))
	for _, su := range event.Users {
		user, err := h.newUser(su)
		if err != nil {
			return SeedResult{}, err
		}
		users = append(users, user)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, user := range users {
			created, err := h.repo.Users().InsertIfMissingTx(ctx, tx, user)
			if err != nil {
				return err
			}
			if created {
				result.Created = append(result.Created, user.Email)
			} else {
				result.Skipped = append(result.Skipped, user.Email)
			}
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return SeedResult{}, richErr
		}
		return SeedResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "user seed transaction failed")
	}

	h.logger.Info("users seeded", "created", len(result.Created), "skipped", len(result.Skipped))

	return result, nil
}

func (h *SeedUsersHandler) newUser(su SeedUser) (*User, error) {
	email := normalizeEmail(su.Email)
	if err := (Credentials{Email: email, Password: su.Password}).Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid seed user").
			WithMetadata(map[string]any{"email": email})
	}

	hash, err := h.hasher.HashPassword(su.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	id, err := hashid.NewUUID(email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id")
	}

	return &User{
		ID:           id,
		Name:         seedName(su.Name, email),
		Email:        email,
		PasswordHash: hash,
	}, nil
}

func seedName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}

	if local, _, ok := strings.Cut(email, "@"); ok {
		return local
	}

	return email
}
