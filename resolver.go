package formversion

import (
	"context"
	"sort"
	"strings"
)

// PageQuery selects the merged pages of one EHC+EXA pair as seen by a
// requester.
type PageQuery struct {
	EHC                 NameAndVersion
	EXA                 NameAndVersion
	IgnoreQuestionScope bool
	Roles               []string
}

// SortedRoles returns the requester roles trimmed, deduplicated and sorted.
func (q PageQuery) SortedRoles() []string {
	seen := make(map[string]struct{}, len(q.Roles))
	out := make([]string, 0, len(q.Roles))
	for _, role := range q.Roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// HasRole reports whether the requester holds role.
func (q PageQuery) HasRole(role string) bool {
	for _, r := range q.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// TemplateResolver resolves merged templates. Implementations live outside
// the engine; they return ErrTemplateNotFound (or a clone of it) when a
// template does not exist.
type TemplateResolver interface {
	GetActiveMergedForm(ctx context.Context, ehcName string) (MergedForm, error)
	GetPrivateMergedForm(ctx context.Context, ehcName, privateCode string) (MergedForm, error)
	GetAllFormVersions(ctx context.Context, ehcName string) ([]FormVersion, error)
	GetMergedForm(ctx context.Context, ehc, exa NameAndVersion) (MergedForm, error)
	GetMergedFormPages(ctx context.Context, query PageQuery) ([]MergedFormPage, error)
}

// HealthCertificateLookup answers questions about EHC metadata.
type HealthCertificateLookup interface {
	// GetExaNumber returns "" when the EHC has no EXA.
	GetExaNumber(ctx context.Context, ehcName string) (string, error)
	IsWithdrawn(ctx context.Context, ehcName string) (bool, error)
	FindEhcNumbersByExa(ctx context.Context, exaNumber string) ([]string, error)
}
