// Package auth turns inbound requests into caller contexts. The resolver
// implementation is chosen once at process start; nothing branches on the
// environment per request.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/shared"
)

// Resolver produces the caller context for one request.
type Resolver interface {
	Resolve(r *http.Request) (shared.Caller, error)
}

// TokenResolver authenticates "Bearer <id>.<secret>" tokens. Token records
// live in the store; the secret is checked against a bcrypt hash and the
// caller is hydrated from the subject's user record. Token issuance and
// rotation live outside this service.
type TokenResolver struct {
	store store.Client
}

// NewTokenResolver builds a TokenResolver.
func NewTokenResolver(st store.Client) *TokenResolver {
	return &TokenResolver{store: st}
}

type tokenRecord struct {
	Subject    string `json:"subject"`
	SecretHash string `json:"secretHash"`
}

// Resolve implements Resolver.
func (t *TokenResolver) Resolve(r *http.Request) (shared.Caller, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "missing bearer token")
	}
	id, secret, ok := strings.Cut(raw, ".")
	if !ok || id == "" || secret == "" {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "malformed bearer token")
	}

	ctx := r.Context()
	rec, err := t.store.Get(ctx, shared.TableTokens, id)
	if errors.Is(err, store.ErrNotFound) {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "unknown token")
	}
	if err != nil {
		return shared.Caller{}, shared.Wrap(shared.KindStorage, "token lookup failed", err)
	}
	var token tokenRecord
	if err := json.Unmarshal(rec.Doc, &token); err != nil {
		return shared.Caller{}, shared.Wrap(shared.KindStorage, "decode token record failed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)); err != nil {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "invalid token secret")
	}

	return t.callerFor(ctx, token.Subject)
}

func (t *TokenResolver) callerFor(ctx context.Context, subject string) (shared.Caller, error) {
	rec, err := t.store.Get(ctx, shared.TableUsers, strings.ToLower(subject))
	if errors.Is(err, store.ErrNotFound) {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "token subject has no directory record")
	}
	if err != nil {
		return shared.Caller{}, shared.Wrap(shared.KindStorage, "caller lookup failed", err)
	}
	var user struct {
		Roles       []string `json:"roles"`
		IsRootAdmin bool     `json:"isRootAdmin"`
	}
	if err := json.Unmarshal(rec.Doc, &user); err != nil {
		return shared.Caller{}, shared.Wrap(shared.KindStorage, "decode caller record failed", err)
	}
	return shared.Caller{
		Subject:     strings.ToLower(subject),
		RoleIDs:     user.Roles,
		IsRootAdmin: user.IsRootAdmin,
	}, nil
}

// HeaderResolver trusts caller headers set by an upstream gateway. Intended
// for development and test setups only.
type HeaderResolver struct{}

// Resolve implements Resolver.
func (HeaderResolver) Resolve(r *http.Request) (shared.Caller, error) {
	subject := strings.TrimSpace(r.Header.Get("X-Caller-Subject"))
	if subject == "" {
		return shared.Caller{}, shared.E(shared.KindAuthentication, "missing caller subject header")
	}
	var roleIDs []string
	for _, id := range strings.Split(r.Header.Get("X-Caller-Roles"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			roleIDs = append(roleIDs, id)
		}
	}
	return shared.Caller{
		Subject:     strings.ToLower(subject),
		RoleIDs:     roleIDs,
		IsRootAdmin: r.Header.Get("X-Caller-Root") == "true",
	}, nil
}
