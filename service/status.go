package service

import (
	"context"

	formversion "github.com/goliatone/go-formversion"
)

// CertificateStatus summarises an EHC for status checks.
type CertificateStatus struct {
	EHC       string `json:"ehc"`
	EXA       string `json:"exa,omitempty"`
	HasEXA    bool   `json:"has_exa"`
	Withdrawn bool   `json:"withdrawn"`
}

// CheckStatus reports the EXA and withdrawn flag of an EHC. An EHC without
// an EXA is a normal result, not an error.
func (e *Engine) CheckStatus(ctx context.Context, ehcName string) (CertificateStatus, error) {
	if e.lookup == nil {
		return CertificateStatus{}, formversion.NewError(formversion.ErrInvalidConfig, "health certificate lookup not configured", nil, nil)
	}
	if ehcName == "" {
		return CertificateStatus{}, formversion.NewError(formversion.ErrInvalidApplication, "ehc name required", nil, nil)
	}

	exa, err := e.lookup.GetExaNumber(ctx, ehcName)
	if err != nil {
		return CertificateStatus{}, err
	}
	withdrawn, err := e.lookup.IsWithdrawn(ctx, ehcName)
	if err != nil {
		return CertificateStatus{}, err
	}
	return CertificateStatus{
		EHC:       ehcName,
		EXA:       exa,
		HasEXA:    exa != "",
		Withdrawn: withdrawn,
	}, nil
}
