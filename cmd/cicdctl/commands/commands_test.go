package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `accounts:
  tools: "111111111111"
  staging: "222222222222"
  prod: "333333333333"
triggers: [master, pr]
services:
  - serviceName: acme
    sources:
      owner: acme-corp
      repoService: acme-services
      repoMvp: acme-web
    secretReference: TokenForGit
    targetStorage:
      staging: arn:aws:s3:::acme-web-staging
      prod: arn:aws:s3:::acme-web-prod
    deployPermissions:
      - actions: ["cloudformation:*"]
  - serviceName: billing
    sources:
      owner: acme-corp
      repoService: billing
    secretReference: TokenForGit
    deployPermissions:
      - actions: ["cloudformation:*"]
`

func run(t *testing.T, content string, args ...string) (string, string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cicd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	var out, logs bytes.Buffer
	logger := zerolog.New(&logs)
	app := NewApp(&logger)
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"cicdctl", "--config", path}, args...))
	return out.String(), logs.String(), err
}

func TestValidate(t *testing.T) {
	_, logs, err := run(t, testConfig, "validate")
	require.NoError(t, err)
	assert.Contains(t, logs, "Configuration is valid")
	assert.Contains(t, logs, `"pipelines":4`)
}

func TestValidate_Invalid(t *testing.T) {
	_, _, err := run(t, "accounts:\n  tools: \"1\"\nservices:\n  - serviceName: acme\n", "validate")
	assert.Error(t, err)
}

func TestPlan_JSON(t *testing.T) {
	out, _, err := run(t, testConfig, "plan", "--format", "json", "--service", "acme")
	require.NoError(t, err)

	var got struct {
		Pipelines []struct {
			PipelineName string `json:"pipelineName"`
		} `json:"pipelines"`
		Roles []struct {
			RoleName string `json:"roleName"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Pipelines, 2)
	assert.Equal(t, "acme_master", got.Pipelines[0].PipelineName)
	assert.Equal(t, "acme_pr", got.Pipelines[1].PipelineName)

	var names []string
	for _, r := range got.Roles {
		names = append(names, r.RoleName)
	}
	assert.Equal(t, []string{"acme-dev-deployer-role", "acme-staging-deployer-role", "acme-prod-deployer-role"}, names)
}

func TestPlan_YAML(t *testing.T) {
	out, _, err := run(t, testConfig, "plan")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Len(t, got["pipelines"], 4)
	assert.Len(t, got["roles"], 6)
}

func TestPlan_Errors(t *testing.T) {
	_, _, err := run(t, testConfig, "plan", "--service", "unknown")
	assert.ErrorContains(t, err, "unknown service")

	_, _, err = run(t, testConfig, "plan", "--format", "toml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRoles(t *testing.T) {
	out, _, err := run(t, testConfig, "roles")
	require.NoError(t, err)
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "arn:aws:iam::111111111111:role/acme-dev-deployer-role")
	assert.Contains(t, out, "arn:aws:iam::333333333333:role/billing-prod-deployer-role")
}

func TestPipelineLookup(t *testing.T) {
	p := &plan{}
	_, err := p.pipeline("acme", "nightly")
	assert.Error(t, err)

	_, err = p.pipeline("acme", "master")
	assert.ErrorContains(t, err, "no master pipeline")
}
