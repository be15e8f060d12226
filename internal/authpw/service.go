// Package authpw checks admin credentials, either against bcrypt hashes in
// the profiles table or against a configured username and password.
package authpw

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"medibilling/portal/internal/store"
)

var ErrMissingCredentials = errors.New("identifier and secret are required")

// MinPasswordLength applies to newly hashed passwords.
const MinPasswordLength = 8

// Authenticator reports whether identifier and secret belong to an admin.
// A false result with a nil error means the credentials were rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (bool, error)
}

// ProfileStore looks up admin profiles by email.
type ProfileStore interface {
	FindProfile(ctx context.Context, email string) (store.Profile, error)
}

type ProfileAuthenticator struct {
	profiles ProfileStore
}

func NewProfileAuthenticator(profiles ProfileStore) *ProfileAuthenticator {
	return &ProfileAuthenticator{profiles: profiles}
}

func (a *ProfileAuthenticator) Authenticate(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, ErrMissingCredentials
	}
	profile, err := a.profiles.FindProfile(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up profile: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// StaticAuthenticator accepts a single configured username and password.
type StaticAuthenticator struct {
	username string
	password string
}

func NewStaticAuthenticator(username, password string) *StaticAuthenticator {
	return &StaticAuthenticator{username: strings.TrimSpace(username), password: password}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, ErrMissingCredentials
	}
	if a.username == "" || a.password == "" {
		return false, nil
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK, nil
}

// Chain tries each authenticator in order and accepts on the first match.
// Errors from one authenticator do not stop the others; they are returned
// only when nothing accepted.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, identifier, secret string) (bool, error) {
	var errs []error
	for _, a := range c {
		ok, err := a.Authenticate(ctx, identifier, secret)
		if ok {
			return true, nil
		}
		if err != nil && !errors.Is(err, ErrMissingCredentials) {
			errs = append(errs, err)
		}
		if errors.Is(err, ErrMissingCredentials) {
			return false, err
		}
	}
	return false, errors.Join(errs...)
}

// HashPassword returns a bcrypt hash suitable for profiles.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
