// Package service describes a deployable service and validates it before any
// pipeline is derived from it.
package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/naming"
)

const DefaultBranch = "master"

// Descriptor enumerates everything that varies per deployable service.
type Descriptor struct {
	ServiceName string          `json:"serviceName" yaml:"serviceName" validate:"required"`
	Sources     SourceLocations `json:"sources" yaml:"sources"`
	// SecretReference names the Secrets Manager secret holding the source
	// control token. The token itself never appears here.
	SecretReference string `json:"secretReference" yaml:"secretReference" validate:"required"`
	// DeployPermissions are held by the deployer roles in every target account.
	DeployPermissions []PermissionGrant `json:"deployPermissions" yaml:"deployPermissions" validate:"min=1"`
	// AccessPermissions are held by the pipeline's own execution role.
	AccessPermissions []PermissionGrant `json:"accessPermissions,omitempty" yaml:"accessPermissions,omitempty"`
	TargetStorage     StorageTargets    `json:"targetStorage" yaml:"targetStorage"`
}

type SourceLocations struct {
	Owner       string `json:"owner" yaml:"owner" validate:"required"`
	RepoService string `json:"repoService" yaml:"repoService" validate:"required"`
	// RepoMVP is the optional web bundle repository, deployed to TargetStorage.
	RepoMVP string `json:"repoMvp,omitempty" yaml:"repoMvp,omitempty"`
	Branch  string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

type StorageTargets struct {
	Staging string `json:"staging,omitempty" yaml:"staging,omitempty" validate:"omitempty,s3locator"`
	Prod    string `json:"prod,omitempty" yaml:"prod,omitempty" validate:"omitempty,s3locator"`
}

// Valid is a Descriptor that passed Validate. Only Validate can produce a
// non-zero Valid.
type Valid struct {
	d Descriptor
}

func (v Valid) ServiceName() string      { return v.d.ServiceName }
func (v Valid) IsZero() bool             { return v.d.ServiceName == "" }
func (v Valid) HasMVP() bool             { return v.d.Sources.RepoMVP != "" }
func (v Valid) Descriptor() Descriptor   { return v.d.clone() }
func (v Valid) Sources() SourceLocations { return v.d.Sources }

// Branch returns the configured source branch or DefaultBranch.
func (v Valid) Branch() string {
	if v.d.Sources.Branch == "" {
		return DefaultBranch
	}
	return v.d.Sources.Branch
}

func (d Descriptor) clone() Descriptor {
	d.DeployPermissions = cloneGrants(d.DeployPermissions)
	d.AccessPermissions = cloneGrants(d.AccessPermissions)
	return d
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("s3locator", func(fl validator.FieldLevel) bool {
		_, err := ParseStorageLocator(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// Validate checks d against accounts and returns the validated descriptor.
// Every failure is a *errors.ConfigurationError; naming failures wrap the
// underlying *errors.InvalidIdentifierError.
func Validate(d Descriptor, accounts StageAccounts) (Valid, error) {
	if err := naming.ValidateServiceName(d.ServiceName); err != nil {
		return Valid{}, &cicderrors.ConfigurationError{Service: d.ServiceName, Field: "serviceName", Err: err}
	}
	for _, s := range deployerStages {
		if _, err := naming.RoleName(d.ServiceName, s.Stage); err != nil {
			return Valid{}, &cicderrors.ConfigurationError{Service: d.ServiceName, Field: "serviceName", Err: err}
		}
	}

	if err := validate.Struct(d); err != nil {
		return Valid{}, formatValidationError(d.ServiceName, err)
	}

	for i, g := range d.DeployPermissions {
		if err := g.validate(); err != nil {
			return Valid{}, &cicderrors.ConfigurationError{
				Service: d.ServiceName,
				Field:   fmt.Sprintf("deployPermissions[%d]", i),
				Reason:  err.Error(),
			}
		}
	}
	for i, g := range d.AccessPermissions {
		if err := g.validate(); err != nil {
			return Valid{}, &cicderrors.ConfigurationError{
				Service: d.ServiceName,
				Field:   fmt.Sprintf("accessPermissions[%d]", i),
				Reason:  err.Error(),
			}
		}
	}

	if d.Sources.RepoMVP != "" {
		if d.TargetStorage.Staging == "" {
			return Valid{}, cicderrors.Configuration(d.ServiceName, "targetStorage.staging", "required when sources.repoMvp is set")
		}
		if d.TargetStorage.Prod == "" {
			return Valid{}, cicderrors.Configuration(d.ServiceName, "targetStorage.prod", "required when sources.repoMvp is set")
		}
	}
	if d.Sources.Branch != "" && strings.ContainsFunc(d.Sources.Branch, isSpace) {
		return Valid{}, cicderrors.Configuration(d.ServiceName, "sources.branch", "must not contain whitespace")
	}

	if err := accounts.Require(RequiredAccounts()...); err != nil {
		if cfgErr, ok := err.(*cicderrors.ConfigurationError); ok {
			cfgErr.Service = d.ServiceName
		}
		return Valid{}, err
	}

	return Valid{d: d.clone()}, nil
}

// ValidateAll validates every descriptor and rejects duplicate service names.
// Nothing is returned unless every descriptor is valid.
func ValidateAll(descriptors []Descriptor, accounts StageAccounts) ([]Valid, error) {
	seen := make(map[string]struct{}, len(descriptors))
	out := make([]Valid, 0, len(descriptors))
	for _, d := range descriptors {
		if _, ok := seen[d.ServiceName]; ok {
			return nil, cicderrors.Configuration(d.ServiceName, "serviceName", "duplicate service name")
		}
		seen[d.ServiceName] = struct{}{}

		v, err := Validate(d, accounts)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// formatValidationError converts validator errors into a single
// ConfigurationError naming the first failing field.
func formatValidationError(serviceName string, err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return &cicderrors.ConfigurationError{Service: serviceName, Err: err}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return &cicderrors.ConfigurationError{
		Service: serviceName,
		Field:   fieldPath(validationErrors[0]),
		Reason:  strings.Join(messages, "; "),
	}
}

func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e)
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "min":
		return fmt.Sprintf("field '%s' needs at least %s entries", field, e.Param())
	case "s3locator":
		return fmt.Sprintf("field '%s' must look like arn:aws:s3:::bucket[/key-prefix]", field)
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}

// fieldPath drops the leading struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	_, path, found := strings.Cut(e.Namespace(), ".")
	if !found {
		return e.Field()
	}
	return path
}
