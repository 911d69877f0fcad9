package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
)

type stubAPIKeyRepo struct {
	keys map[string]domain.APIKey
}

func (r *stubAPIKeyRepo) FindByTokenHash(_ context.Context, tokenHash string) (domain.APIKey, error) {
	key, ok := r.keys[tokenHash]
	if !ok {
		return domain.APIKey{}, domain.ErrNotFound
	}
	return key, nil
}

func (r *stubAPIKeyRepo) Upsert(_ context.Context, key domain.APIKey) error {
	if r.keys == nil {
		r.keys = make(map[string]domain.APIKey)
	}
	r.keys[key.TokenHash] = key
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := &stubAPIKeyRepo{}
	_ = repo.Upsert(context.Background(), domain.APIKey{
		TokenHash: HashToken("secret"),
		TenantID:  "tenant-a",
		Name:      "ci",
		Active:    true,
	})
	svc := NewAuthService(repo)

	key, err := svc.Authenticate(context.Background(), "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if key.TenantID != "tenant-a" || key.Name != "ci" {
		t.Fatalf("unexpected key: %+v", key)
	}
}

func TestAuthenticateRejectsUnknownEmptyAndInactiveTokens(t *testing.T) {
	repo := &stubAPIKeyRepo{}
	_ = repo.Upsert(context.Background(), domain.APIKey{
		TokenHash: HashToken("revoked"),
		TenantID:  "tenant-a",
		Active:    false,
	})
	svc := NewAuthService(repo)

	for _, token := range []string{"", "   ", "wrong", "revoked"} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}
