package auth

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthBackend = (*DigestBackend)(nil)

// DigestBackend authenticates against an Apache htdigest password file with
// "user:realm:md5(user:realm:password)" lines. Account details are managed
// outside the application, so nothing can be changed from the account page.
type DigestBackend struct {
	path   string
	realm  string
	users  driven.UserStore
	logger *slog.Logger
}

// NewDigestBackend creates a DigestBackend reading the password file at path.
func NewDigestBackend(path, realm string, users driven.UserStore, logger *slog.Logger) *DigestBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestBackend{path: path, realm: realm, users: users, logger: logger}
}

func (b *DigestBackend) ID() string   { return "digest" }
func (b *DigestBackend) Name() string { return "HTTP Digest Authentication" }

func (b *DigestBackend) SupportsChangePassword() bool { return false }
func (b *DigestBackend) SupportsChangeName() bool     { return false }
func (b *DigestBackend) SupportsChangeEmail() bool    { return false }

// Authenticate looks the user up in the password file. A missing file or a
// malformed line is logged and treated as a failed login.
func (b *DigestBackend) Authenticate(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	want := digestHash(username, b.realm, password)

	f, err := os.Open(b.path)
	if err != nil {
		b.logger.Error("could not open digest password file", "path", b.path, "error", err)
		return false, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 3 {
			b.logger.Error("malformed digest password file line", "path", b.path, "line", lineNo)
			return false, nil
		}

		if parts[0] == username && parts[2] == want {
			if _, err := b.GetOrCreateUser(ctx, username); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		b.logger.Error("reading digest password file", "path", b.path, "error", err)
	}

	return false, nil
}

// GetOrCreateUser returns the local record for username, creating an active,
// non-staff user with an unusable password on first login.
func (b *DigestBackend) GetOrCreateUser(ctx context.Context, username string) (*model.User, error) {
	user, err := b.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", username, err)
	}
	if user != nil {
		return user, nil
	}

	created, err := b.users.Create(ctx, model.User{
		Username:   username,
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}

	b.logger.Info("created user from digest login", "user", username)
	return &created, nil
}

func (b *DigestBackend) UpdatePassword(context.Context, *model.User, string) error {
	return driven.ErrNotSupported
}

func (b *DigestBackend) UpdateName(context.Context, *model.User) error {
	return driven.ErrNotSupported
}

func (b *DigestBackend) UpdateEmail(context.Context, *model.User) error {
	return driven.ErrNotSupported
}

// digestHash returns the hex MD5 of "user:realm:password", the htdigest format.
func digestHash(username, realm, password string) string {
	sum := md5.Sum([]byte(username + ":" + realm + ":" + password))
	return hex.EncodeToString(sum[:])
}
