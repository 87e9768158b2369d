package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/service"
)

type fakeIdentity struct {
	account string
	err     error
}

func (f fakeIdentity) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

type fakeSecrets struct {
	missing map[string]bool
	calls   []string
}

func (f *fakeSecrets) DescribeSecret(_ context.Context, in *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	name := aws.ToString(in.SecretId)
	f.calls = append(f.calls, name)
	if f.missing[name] {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.DescribeSecretOutput{Name: in.SecretId}, nil
}

type fakeBuckets struct {
	missing map[string]bool
	calls   []string
}

func (f *fakeBuckets) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	name := aws.ToString(in.Bucket)
	f.calls = append(f.calls, name)
	if f.missing[name] {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadBucketOutput{}, nil
}

func validServices(t *testing.T) []service.Valid {
	t.Helper()
	accounts := service.StageAccounts{"tools": "1", "staging": "2", "prod": "3"}

	descriptors := []service.Descriptor{
		{
			ServiceName:       "acme",
			Sources:           service.SourceLocations{Owner: "acme-corp", RepoService: "services", RepoMVP: "web"},
			SecretReference:   "TokenForGit",
			DeployPermissions: []service.PermissionGrant{service.AllowAll("cloudformation:*")},
			TargetStorage: service.StorageTargets{
				Staging: "arn:aws:s3:::acme-web-staging",
				Prod:    "arn:aws:s3:::acme-web-prod/site",
			},
		},
		{
			ServiceName:       "billing",
			Sources:           service.SourceLocations{Owner: "acme-corp", RepoService: "billing"},
			SecretReference:   "TokenForGit",
			DeployPermissions: []service.PermissionGrant{service.AllowAll("cloudformation:*")},
		},
	}
	valid, err := service.ValidateAll(descriptors, accounts)
	require.NoError(t, err)
	return valid
}

func TestPreflight_Run(t *testing.T) {
	secrets := &fakeSecrets{}
	buckets := &fakeBuckets{}
	p := NewPreflight(fakeIdentity{account: "1"}, secrets, buckets)

	checks := p.Run(context.Background(), validServices(t), "1")
	require.Len(t, checks, 4)
	assert.NoError(t, Failed(checks))

	assert.Equal(t, []string{"TokenForGit"}, secrets.calls)
	assert.Equal(t, []string{"acme-web-staging", "acme-web-prod"}, buckets.calls)
	assert.Equal(t, "caller-account", checks[0].Name)
	assert.Equal(t, "source-credential", checks[1].Name)
	assert.Equal(t, "target-storage", checks[2].Name)
}

func TestPreflight_Failures(t *testing.T) {
	secrets := &fakeSecrets{missing: map[string]bool{"TokenForGit": true}}
	buckets := &fakeBuckets{missing: map[string]bool{"acme-web-prod": true}}
	p := NewPreflight(fakeIdentity{account: "9"}, secrets, buckets)

	checks := p.Run(context.Background(), validServices(t), "1")
	err := Failed(checks)
	require.Error(t, err)

	assert.True(t, errors.Is(checks[0].Err, cicderrors.ErrConfiguration))
	assert.True(t, errors.Is(checks[1].Err, cicderrors.ErrExternalProvisioning))
	assert.ErrorContains(t, checks[1].Err, "ResourceNotFoundException")
	assert.NoError(t, checks[2].Err)
	assert.True(t, errors.Is(checks[3].Err, cicderrors.ErrExternalProvisioning))
	assert.ErrorContains(t, err, "target-storage")
}

func TestPreflight_IdentityError(t *testing.T) {
	p := NewPreflight(fakeIdentity{err: errors.New("ExpiredToken")}, &fakeSecrets{}, &fakeBuckets{})

	checks := p.Run(context.Background(), nil, "1")
	require.Len(t, checks, 1)
	var extErr *cicderrors.ExternalProvisioningError
	require.True(t, errors.As(checks[0].Err, &extErr))
	assert.Equal(t, "GetCallerIdentity", extErr.Op)
}
