// Package deployer describes the roles that target accounts create so the
// tools account can deploy a service into them.
package deployer

import (
	cicderrors "github.com/30Piraten/service-cicd/internal/errors"
	"github.com/30Piraten/service-cicd/internal/naming"
	"github.com/30Piraten/service-cicd/internal/service"
)

// PassRole is attached to every deployer role so the deploy can hand roles
// to the resources it creates. Those roles do not exist yet when the deployer
// role is created, so the grant covers every resource rather than the
// deployer role itself.
var PassRole = service.AllowAll("iam:PassRole")

// RoleDescriptor is a cross-account deployer role.
type RoleDescriptor struct {
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	Stage       string `json:"stage" yaml:"stage"`
	RoleName    string `json:"roleName" yaml:"roleName"`
	PolicyName  string `json:"policyName" yaml:"policyName"`
	// TrustedAccountID is the only account allowed to assume the role.
	TrustedAccountID string                    `json:"trustedAccountId" yaml:"trustedAccountId"`
	Statements       []service.PermissionGrant `json:"statements" yaml:"statements"`
}

// AssumeRolePolicy returns the trust policy statement of the role.
func (r RoleDescriptor) AssumeRolePolicy() map[string]any {
	return map[string]any{
		"Effect":    "Allow",
		"Principal": map[string]string{"AWS": "arn:aws:iam::" + r.TrustedAccountID + ":root"},
		"Action":    "sts:AssumeRole",
	}
}

// BuildTrustDescriptor returns the deployer role of serviceName in stage,
// assumable from deployingAccountID, holding PassRole and deployPermissions.
func BuildTrustDescriptor(serviceName, stage, deployingAccountID string, deployPermissions []service.PermissionGrant) (RoleDescriptor, error) {
	roleName, err := naming.RoleName(serviceName, stage)
	if err != nil {
		return RoleDescriptor{}, err
	}
	if err := naming.ValidateAccountID(deployingAccountID); err != nil {
		return RoleDescriptor{}, err
	}
	if len(deployPermissions) == 0 {
		return RoleDescriptor{}, cicderrors.Configuration(serviceName, "deployPermissions", "at least one deploy permission is required")
	}

	statements := make([]service.PermissionGrant, 0, len(deployPermissions)+1)
	statements = append(statements, PassRole)
	for _, g := range deployPermissions {
		if !contains(statements, g) {
			statements = append(statements, g)
		}
	}

	return RoleDescriptor{
		ServiceName:      serviceName,
		Stage:            stage,
		RoleName:         roleName,
		PolicyName:       roleName + "-policy",
		TrustedAccountID: deployingAccountID,
		Statements:       statements,
	}, nil
}

// BuildAll returns the deployer roles of every service for the stages hosted
// in targetAccount, trusted by the tools account. Stages whose account key is
// not targetAccount are skipped.
func BuildAll(services []service.Valid, accounts service.StageAccounts, targetAccount string) ([]RoleDescriptor, error) {
	toolsAccount, err := accounts.Account(service.AccountTools)
	if err != nil {
		return nil, err
	}

	var out []RoleDescriptor
	for _, s := range service.DeployerStages() {
		if s.Account != targetAccount {
			continue
		}
		for _, v := range services {
			r, err := BuildTrustDescriptor(v.ServiceName(), s.Stage, toolsAccount, v.Descriptor().DeployPermissions)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func contains(grants []service.PermissionGrant, g service.PermissionGrant) bool {
	for _, existing := range grants {
		if existing.Equal(g) {
			return true
		}
	}
	return false
}
