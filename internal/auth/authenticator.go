package auth

import (
	"errors"
	"fmt"
	"log"

	"github.com/sujkovic/kevin-authenticated-db/internal/models"
	"github.com/sujkovic/kevin-authenticated-db/internal/storage"
)

// ErrInvalidCredentials is returned for both an unknown username and a wrong
// password. Callers surface one message for either case; the distinct reason
// only appears in the server log.
var ErrInvalidCredentials = errors.New("auth: invalid username or password")

// dummyHash is compared against when the username does not exist, so a log-in
// attempt costs one bcrypt verification whether or not the account is real.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticator checks a username/password pair against the credential store.
type Authenticator struct {
	db *storage.DB
}

// NewAuthenticator creates an Authenticator backed by db.
func NewAuthenticator(db *storage.DB) *Authenticator {
	return &Authenticator{db: db}
}

// Authenticate looks up the user and verifies the password. It returns
// ErrInvalidCredentials when the username is unknown or the password is wrong,
// and a wrapped storage error when the lookup itself fails.
func (a *Authenticator) Authenticate(username, password string) (*models.User, error) {
	user, err := a.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			CheckPassword(password, dummyHash)
			log.Printf("Login failed for %q: unknown user", username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: looking up user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		log.Printf("Login failed for %q: bad password", username)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
