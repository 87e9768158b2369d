package deployer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/naming"
	"github.com/30Piraten/service-cicd/internal/service"
)

func TestBuildTrustDescriptor(t *testing.T) {
	perms := []service.PermissionGrant{
		service.AllowAll("cloudformation:*"),
		service.AllowAll("lambda:CreateFunction", "lambda:GetFunction"),
	}

	r, err := BuildTrustDescriptor("acme", "prod", "721044506055", perms)
	require.NoError(t, err)

	wantName, err := naming.RoleName("acme", "prod")
	require.NoError(t, err)
	assert.Equal(t, wantName, r.RoleName)
	assert.Equal(t, "acme-prod-deployer-role-policy", r.PolicyName)
	assert.Equal(t, "721044506055", r.TrustedAccountID)

	require.Len(t, r.Statements, 3)
	assert.True(t, r.Statements[0].Equal(PassRole))
	assert.True(t, r.Statements[1].Equal(perms[0]))
	assert.True(t, r.Statements[2].Equal(perms[1]))

	trust := r.AssumeRolePolicy()
	assert.Equal(t, "sts:AssumeRole", trust["Action"])
	assert.Equal(t, map[string]string{"AWS": "arn:aws:iam::721044506055:root"}, trust["Principal"])
}

func TestBuildTrustDescriptor_PassRoleNotDuplicated(t *testing.T) {
	r, err := BuildTrustDescriptor("acme", "dev", "1", []service.PermissionGrant{
		service.AllowAll("iam:PassRole"),
		service.AllowAll("s3:*"),
	})
	require.NoError(t, err)
	require.Len(t, r.Statements, 2)
	assert.True(t, r.Statements[0].Equal(PassRole))
}

func TestBuildTrustDescriptor_Errors(t *testing.T) {
	perms := []service.PermissionGrant{service.AllowAll("s3:*")}

	_, err := BuildTrustDescriptor("", "dev", "1", perms)
	assert.True(t, errors.Is(err, cicderrors.ErrInvalidIdentifier))

	_, err = BuildTrustDescriptor("acme", "dev", "", perms)
	assert.True(t, errors.Is(err, cicderrors.ErrInvalidIdentifier))

	_, err = BuildTrustDescriptor("acme", "dev", "1", nil)
	assert.True(t, errors.Is(err, cicderrors.ErrConfiguration))
}

func TestBuildAll(t *testing.T) {
	accounts := service.StageAccounts{"tools": "1", "staging": "2", "prod": "3"}
	d := service.Descriptor{
		ServiceName:       "acme",
		Sources:           service.SourceLocations{Owner: "o", RepoService: "svc"},
		SecretReference:   "token",
		DeployPermissions: []service.PermissionGrant{service.AllowAll("cloudformation:*")},
	}
	v, err := service.Validate(d, accounts)
	require.NoError(t, err)

	roles, err := BuildAll([]service.Valid{v}, accounts, service.AccountStaging)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "acme-staging-deployer-role", roles[0].RoleName)
	assert.Equal(t, "1", roles[0].TrustedAccountID)

	roles, err = BuildAll([]service.Valid{v}, accounts, service.AccountTools)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "dev", roles[0].Stage)

	roles, err = BuildAll(nil, accounts, service.AccountProd)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = BuildAll([]service.Valid{v}, service.StageAccounts{"prod": "3"}, service.AccountProd)
	assert.True(t, errors.Is(err, cicderrors.ErrConfiguration))
}

func TestRoleNamesMatchTopologyArns(t *testing.T) {
	for _, s := range service.DeployerStages() {
		r, err := BuildTrustDescriptor("acme", s.Stage, "1", []service.PermissionGrant{service.AllowAll("s3:*")})
		require.NoError(t, err)

		roleArn, err := naming.RoleArn("acme", s.Stage, "9")
		require.NoError(t, err)
		assert.Equal(t, "arn:aws:iam::9:role/"+r.RoleName, roleArn)
	}
}
