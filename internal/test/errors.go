package test

import domainErrors "github.com/vendano/payflow/internal/domain/errors"

var errNotFound = domainErrors.ErrNotFound

// TransientProviderError builds an unavailable-kind provider error.
func TransientProviderError(p string) error {
	return &domainErrors.ProviderError{
		Kind:     domainErrors.ProviderUnavailable,
		Provider: p,
		Message:  "gateway unreachable",
	}
}

// RejectedProviderError builds a rejected-kind provider error.
func RejectedProviderError(p, code, message string) error {
	return &domainErrors.ProviderError{
		Kind:     domainErrors.ProviderRejected,
		Provider: p,
		Code:     code,
		Message:  message,
	}
}
