// Package naming derives the deployer role identity for a service and stage.
//
// The role that a target account creates and the role a build project asks to
// assume are both named here, so the two sides always agree byte for byte.
package naming

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws/arn"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
)

const (
	// MaxRoleNameLength is the IAM limit on role names.
	MaxRoleNameLength = 64

	// MaxServiceNameLength keeps "{service}_master_pipeline_failed_rule"
	// within the 64 character EventBridge rule name limit.
	MaxServiceNameLength = 64 - len("_master_pipeline_failed_rule")

	roleSuffix = "deployer-role"
	partition  = "aws"
	allowed    = "+=,.@_-"
)

// RoleName returns "{serviceName}-{stage}-deployer-role".
func RoleName(serviceName, stage string) (string, error) {
	if err := ValidateFragment("serviceName", serviceName); err != nil {
		return "", err
	}
	if err := ValidateFragment("stage", stage); err != nil {
		return "", err
	}

	name := serviceName + "-" + stage + "-" + roleSuffix
	if len(name) > MaxRoleNameLength {
		return "", &cicderrors.InvalidIdentifierError{
			Field:  "roleName",
			Value:  name,
			Reason: fmt.Sprintf("length %d exceeds %d characters", len(name), MaxRoleNameLength),
		}
	}
	return name, nil
}

// RoleArn returns the ARN of RoleName(serviceName, stage) in accountID.
func RoleArn(serviceName, stage, accountID string) (string, error) {
	name, err := RoleName(serviceName, stage)
	if err != nil {
		return "", err
	}
	if err := ValidateAccountID(accountID); err != nil {
		return "", err
	}

	return arn.ARN{
		Partition: partition,
		Service:   "iam",
		AccountID: accountID,
		Resource:  "role/" + name,
	}.String(), nil
}

// ValidateFragment checks that value can be embedded in an IAM role name.
func ValidateFragment(field, value string) error {
	if value == "" {
		return &cicderrors.InvalidIdentifierError{Field: field, Value: value, Reason: "must not be empty"}
	}
	if len(value) > MaxRoleNameLength {
		return &cicderrors.InvalidIdentifierError{
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("length %d exceeds %d characters", len(value), MaxRoleNameLength),
		}
	}
	for _, r := range value {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return &cicderrors.InvalidIdentifierError{Field: field, Value: value, Reason: "contains whitespace or control characters"}
		case r > unicode.MaxASCII:
			return &cicderrors.InvalidIdentifierError{Field: field, Value: value, Reason: fmt.Sprintf("contains non-ASCII character %q", r)}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowed, r):
		default:
			return &cicderrors.InvalidIdentifierError{
				Field:  field,
				Value:  value,
				Reason: fmt.Sprintf("contains %q, allowed are letters, digits and %s", r, allowed),
			}
		}
	}
	return nil
}

// ValidateServiceName checks that name can prefix every resource name derived
// from a service: role, pipeline, build project and event rule names. Only
// letters, digits and '-' are allowed, starting with a letter or digit.
func ValidateServiceName(name string) error {
	if err := ValidateFragment("serviceName", name); err != nil {
		return err
	}
	if len(name) > MaxServiceNameLength {
		return &cicderrors.InvalidIdentifierError{
			Field:  "serviceName",
			Value:  name,
			Reason: fmt.Sprintf("length %d exceeds %d characters", len(name), MaxServiceNameLength),
		}
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' && i > 0:
		default:
			return &cicderrors.InvalidIdentifierError{
				Field:  "serviceName",
				Value:  name,
				Reason: fmt.Sprintf("contains %q, allowed are letters, digits and '-' after the first character", r),
			}
		}
	}
	return nil
}

// ValidateAccountID checks that id is a non-empty string of digits.
func ValidateAccountID(id string) error {
	if id == "" {
		return &cicderrors.InvalidIdentifierError{Field: "accountId", Value: id, Reason: "must not be empty"}
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return &cicderrors.InvalidIdentifierError{Field: "accountId", Value: id, Reason: "must contain only digits"}
		}
	}
	return nil
}
