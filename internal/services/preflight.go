package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/service"
)

type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type SecretsAPI interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

type BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Preflight checks that the resources a pipeline deployment depends on exist
// before anything is synthesized.
type Preflight struct {
	identity IdentityAPI
	secrets  SecretsAPI
	buckets  BucketAPI
}

func NewPreflight(identity IdentityAPI, secrets SecretsAPI, buckets BucketAPI) *Preflight {
	return &Preflight{identity: identity, secrets: secrets, buckets: buckets}
}

func NewPreflightFromConfig(cfg aws.Config) *Preflight {
	return NewPreflight(sts.NewFromConfig(cfg), secretsmanager.NewFromConfig(cfg), s3.NewFromConfig(cfg))
}

// Check is the outcome of one preflight check. Err is nil when it passed.
type Check struct {
	Name     string
	Resource string
	Err      error
}

// Run performs every check and returns them in order: caller account, one
// per distinct credential secret, one per storage target.
func (p *Preflight) Run(ctx context.Context, services []service.Valid, toolsAccount string) []Check {
	checks := []Check{p.checkCaller(ctx, toolsAccount)}

	seen := map[string]bool{}
	for _, v := range services {
		d := v.Descriptor()
		if !seen[d.SecretReference] {
			seen[d.SecretReference] = true
			checks = append(checks, p.checkSecret(ctx, d.SecretReference))
		}
	}

	for _, v := range services {
		d := v.Descriptor()
		for _, locator := range []string{d.TargetStorage.Staging, d.TargetStorage.Prod} {
			if locator == "" {
				continue
			}
			checks = append(checks, p.checkBucket(ctx, locator))
		}
	}
	return checks
}

func (p *Preflight) checkCaller(ctx context.Context, toolsAccount string) Check {
	c := Check{Name: "caller-account", Resource: toolsAccount}
	out, err := p.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		c.Err = cicderrors.External("GetCallerIdentity", toolsAccount, err)
		return c
	}
	if got := aws.ToString(out.Account); got != toolsAccount {
		c.Err = cicderrors.Configuration("", "accounts.tools",
			fmt.Sprintf("credentials belong to account %s, not the tools account %s", got, toolsAccount))
	}
	return c
}

func (p *Preflight) checkSecret(ctx context.Context, name string) Check {
	c := Check{Name: "source-credential", Resource: name}
	_, err := p.secrets.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(name),
	})
	c.Err = cicderrors.External("DescribeSecret", name, err)
	return c
}

func (p *Preflight) checkBucket(ctx context.Context, locator string) Check {
	c := Check{Name: "target-storage", Resource: locator}
	l, err := service.ParseStorageLocator(locator)
	if err != nil {
		c.Err = err
		return c
	}
	_, err = p.buckets.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(l.Bucket),
	})
	c.Err = cicderrors.External("HeadBucket", l.Bucket, err)
	return c
}

// Failed joins the errors of every failed check, or returns nil.
func Failed(checks []Check) error {
	var errs []error
	for _, c := range checks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}
