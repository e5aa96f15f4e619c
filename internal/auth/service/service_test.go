package service

import (
	"context"
	"testing"
	"time"

	"referral_backend/internal/auth/provider"
	"referral_backend/internal/auth/repository"
	"referral_backend/platform/apperr"
	"referral_backend/platform/httpkit"
	"referral_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeProvider struct {
	envelope provider.TokenEnvelope
	err      error
}

func (f *fakeProvider) SignIn(context.Context, string, string) (provider.TokenEnvelope, error) {
	return f.envelope, f.err
}

func (f *fakeProvider) Verify(context.Context, string) (httpkit.Principal, error) {
	return httpkit.Principal{}, nil
}

type fakeRoles struct {
	roles map[uuid.UUID]string
	calls int
}

func (f *fakeRoles) GetRole(_ context.Context, uid uuid.UUID) (string, error) {
	f.calls++
	role, ok := f.roles[uid]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

func TestLoginSuccess(t *testing.T) {
	p := &fakeProvider{envelope: provider.TokenEnvelope{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 900}}
	svc := New(p, &fakeRoles{}, nil, time.Minute, logger.New("test"))

	envelope, err := svc.Login(context.Background(), "a@example.org", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.AccessToken != "tok" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestLoginFailureIsUnauthorized(t *testing.T) {
	p := &fakeProvider{err: provider.ErrInvalidCredentials}
	svc := New(p, &fakeRoles{}, nil, time.Minute, logger.New("test"))

	_, err := svc.Login(context.Background(), "a@example.org", "password123")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRoleForDefaultsToViewer(t *testing.T) {
	svc := New(&fakeProvider{}, &fakeRoles{}, nil, time.Minute, logger.New("test"))

	role, err := svc.RoleFor(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != httpkit.RoleViewer {
		t.Fatalf("expected viewer default, got %q", role)
	}
}

func TestRoleForReadsStoredRole(t *testing.T) {
	uid := uuid.New()
	roles := &fakeRoles{roles: map[uuid.UUID]string{uid: httpkit.RoleAdmin}}
	svc := New(&fakeProvider{}, roles, nil, time.Minute, logger.New("test"))

	role, err := svc.RoleFor(context.Background(), uid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != httpkit.RoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}
}

func TestRoleForUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	uid := uuid.New()
	roles := &fakeRoles{roles: map[uuid.UUID]string{uid: httpkit.RoleAdmin}}
	svc := New(&fakeProvider{}, roles, cache, time.Minute, logger.New("test"))

	for i := 0; i < 3; i++ {
		role, err := svc.RoleFor(context.Background(), uid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if role != httpkit.RoleAdmin {
			t.Fatalf("expected admin, got %q", role)
		}
	}

	if roles.calls != 1 {
		t.Fatalf("expected a single store lookup with warm cache, got %d", roles.calls)
	}

	if cached, err := cache.Get(context.Background(), "role:"+uid.String()).Result(); err != nil || cached != httpkit.RoleAdmin {
		t.Fatalf("expected cached role, got %q err=%v", cached, err)
	}
}
