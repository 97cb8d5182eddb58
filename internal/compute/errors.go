package compute

import (
	"errors"
	"fmt"
	"strings"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"
)

// ErrorKind is the category a provider failure is flattened into
type ErrorKind int

const (
	// KindUnexpected covers network failures, missing response data and programming errors
	KindUnexpected ErrorKind = iota
	// KindClient is a request the provider rejected
	KindClient
	// KindCredentials means the provider has no usable credentials or refused them
	KindCredentials
)

// String returns the kind name used in logs and metrics
func (k ErrorKind) String() string {
	switch k {
	case KindCredentials:
		return "credentials"
	case KindClient:
		return "client"
	default:
		return "unexpected"
	}
}

// credentialErrorCodes are API error codes that mean the caller's credentials were refused
var credentialErrorCodes = map[string]struct{}{
	"AuthFailure":                 {},
	"InvalidClientTokenId":        {},
	"MissingAuthenticationToken":  {},
	"ExpiredToken":                {},
	"RequestExpired":              {},
	"SignatureDoesNotMatch":       {},
	"IncompleteSignature":         {},
	"UnrecognizedClientException": {},
}

// credentialMessages match credential resolution failures raised before a request is signed
var credentialMessages = []string{
	"failed to retrieve credentials",
	"failed to refresh cached credentials",
	"get identity",
	"no ec2 imds role found",
	"static credentials are empty",
}

// ProviderError is a classified failure of one provider operation
type ProviderError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed (%s error): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify wraps err with the kind derived from it. Errors that are already classified keep
// their kind; nil stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Kind: kindFromError(err), Err: err}
}

// NewError builds a ProviderError of an explicit kind
func NewError(op string, kind ErrorKind, err error) error {
	return &ProviderError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of a classified error, KindUnexpected otherwise
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnexpected
}

// IsCredentialsError reports whether err means missing or refused credentials
func IsCredentialsError(err error) bool {
	return kindFromError(err) == KindCredentials
}

// APIErrorCode returns the provider error code carried by err, if any
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func kindFromError(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	var signErr *v4.SigningError
	if errors.As(err, &signErr) {
		return KindCredentials
	}

	var emptyErr *credentials.StaticCredentialsEmptyError
	if errors.As(err, &emptyErr) {
		return KindCredentials
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := credentialErrorCodes[apiErr.ErrorCode()]; ok {
			return KindCredentials
		}
		return KindClient
	}

	msg := strings.ToLower(err.Error())
	for _, m := range credentialMessages {
		if strings.Contains(msg, m) {
			return KindCredentials
		}
	}

	return KindUnexpected
}
