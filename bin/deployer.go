package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/service-cicd/internal/deployer"
)

// NewDeployerRoleStack creates the deployer roles hosted by one account.
func NewDeployerRoleStack(scope constructs.Construct, id string, props *StackProps, roles []deployer.RoleDescriptor) awscdk.Stack {
	stack := initializeStack(scope, id, props)

	for _, r := range roles {
		role := createDeployerRole(stack, r)
		createRoleOutput(stack, role)
	}

	return stack
}

func createDeployerRole(stack awscdk.Stack, r deployer.RoleDescriptor) awsiam.Role {
	role := awsiam.NewRole(stack, jsii.String(r.RoleName), &awsiam.RoleProps{
		RoleName:    jsii.String(r.RoleName),
		Description: jsii.String("Deploys " + r.ServiceName + " to " + r.Stage),
		AssumedBy:   awsiam.NewAccountPrincipal(jsii.String(r.TrustedAccountID)),
	})

	statements := make([]awsiam.PolicyStatement, 0, len(r.Statements))
	for _, g := range r.Statements {
		statements = append(statements, policyStatement(g))
	}
	policy := awsiam.NewPolicy(stack, jsii.String(r.PolicyName), &awsiam.PolicyProps{
		PolicyName: jsii.String(r.PolicyName),
		Statements: &statements,
	})
	policy.AttachToRole(role)

	return role
}
