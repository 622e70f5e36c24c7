package service

import (
	"net/http"
	"slices"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
)

const ScopeOpenID = "openid"

// ScopePolicy decides which of the requested scopes a client is granted.
type ScopePolicy interface {
	CheckScopesPolicy(client domain.Client, requested []string) []string
}

// ClientScopePolicy grants the requested scopes the client is registered
// for, in request order and without duplicates.
type ClientScopePolicy struct{}

func (ClientScopePolicy) CheckScopesPolicy(client domain.Client, requested []string) []string {
	return intersect(dedupe(requested), client.Scopes)
}

// grantedScopes applies policy and requires openid to survive it.
func grantedScopes(policy ScopePolicy, client domain.Client, requested []string) ([]string, error) {
	if !slices.Contains(requested, ScopeOpenID) {
		return nil, cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidScope, "scope must include openid")
	}
	granted := policy.CheckScopesPolicy(client, requested)
	if !slices.Contains(granted, ScopeOpenID) {
		return nil, cibaError(http.StatusBadRequest, authsdk.ErrorCodeInvalidScope, "client is not allowed the openid scope")
	}
	return granted, nil
}

func intersect(a, b []string) []string {
	allowed := make(map[string]struct{}, len(b))
	for _, s := range b {
		allowed[s] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := allowed[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
