package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"medibilling/portal/internal/store"
)

type mockProfileStore struct {
	profiles map[string]store.Profile
	err      error
}

func (m *mockProfileStore) FindProfile(_ context.Context, email string) (store.Profile, error) {
	if m.err != nil {
		return store.Profile{}, m.err
	}
	if p, ok := m.profiles[email]; ok {
		return p, nil
	}
	return store.Profile{}, store.ErrNotFound
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hash)
}

func TestProfileAuthenticator(t *testing.T) {
	profiles := &mockProfileStore{profiles: map[string]store.Profile{
		"admin@example.com": {ID: "p1", Email: "admin@example.com", PasswordHash: hashed(t, "correct horse")},
	}}
	auth := NewProfileAuthenticator(profiles)

	tests := []struct {
		name     string
		email    string
		password string
		want     bool
		wantErr  error
	}{
		{name: "valid", email: "admin@example.com", password: "correct horse", want: true},
		{name: "wrong password", email: "admin@example.com", password: "nope"},
		{name: "unknown email", email: "who@example.com", password: "correct horse"},
		{name: "missing password", email: "admin@example.com", wantErr: ErrMissingCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := auth.Authenticate(context.Background(), tc.email, tc.password)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("authenticate: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, ok)
			}
		})
	}
}

func TestProfileAuthenticatorStoreError(t *testing.T) {
	auth := NewProfileAuthenticator(&mockProfileStore{err: errors.New("db down")})
	ok, err := auth.Authenticate(context.Background(), "admin@example.com", "pw")
	if ok || err == nil {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
}

func TestStaticAuthenticator(t *testing.T) {
	auth := NewStaticAuthenticator("admin", "s3cret")
	if ok, _ := auth.Authenticate(context.Background(), "admin", "s3cret"); !ok {
		t.Fatal("expected configured credentials to pass")
	}
	if ok, _ := auth.Authenticate(context.Background(), "admin", "S3cret"); ok {
		t.Fatal("expected wrong password to fail")
	}
	unset := NewStaticAuthenticator("", "")
	if ok, _ := unset.Authenticate(context.Background(), "", "x"); ok {
		t.Fatal("unconfigured authenticator must reject")
	}
}

func TestChainFallsThrough(t *testing.T) {
	chain := Chain{
		NewProfileAuthenticator(&mockProfileStore{err: errors.New("db down")}),
		NewStaticAuthenticator("admin", "s3cret"),
	}
	ok, err := chain.Authenticate(context.Background(), "admin", "s3cret")
	if !ok || err != nil {
		t.Fatalf("expected static fallback to accept, got ok=%v err=%v", ok, err)
	}

	ok, err = chain.Authenticate(context.Background(), "admin", "bad")
	if ok || err == nil {
		t.Fatalf("expected rejection carrying the store error, got ok=%v err=%v", ok, err)
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected short password rejected")
	}
	hash, err := HashPassword("long enough")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("long enough")) != nil {
		t.Fatal("hash does not verify")
	}
}
