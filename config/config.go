// Package config loads the deployment configuration: target accounts, the
// services that get pipelines, and their permissions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/30Piraten/service-cicd/internal/service"
	"github.com/30Piraten/service-cicd/internal/topology"
)

// File is the deployment configuration file.
type File struct {
	Region    string            `mapstructure:"region"`
	StackName string            `mapstructure:"stackName"`
	Accounts  map[string]string `mapstructure:"accounts"`
	Triggers  []string          `mapstructure:"triggers"`
	Alerts    AlertsConfig      `mapstructure:"alerts"`
	Services  []ServiceConfig   `mapstructure:"services"`
}

type AlertsConfig struct {
	Disabled    bool   `mapstructure:"disabled"`
	TopicName   string `mapstructure:"topicName"`
	DisplayName string `mapstructure:"displayName"`
}

type ServiceConfig struct {
	ServiceName       string            `mapstructure:"serviceName"`
	Sources           SourcesConfig     `mapstructure:"sources"`
	SecretReference   string            `mapstructure:"secretReference"`
	DeployPermissions []StatementConfig `mapstructure:"deployPermissions"`
	AccessPermissions []StatementConfig `mapstructure:"accessPermissions"`
	TargetStorage     StorageConfig     `mapstructure:"targetStorage"`
}

type SourcesConfig struct {
	Owner       string `mapstructure:"owner"`
	RepoService string `mapstructure:"repoService"`
	RepoMVP     string `mapstructure:"repoMvp"`
	Branch      string `mapstructure:"branch"`
}

type StorageConfig struct {
	Staging string `mapstructure:"staging"`
	Prod    string `mapstructure:"prod"`
}

// StatementConfig is a permission statement as written in the file. Effect
// defaults to Allow and Resources to "*".
type StatementConfig struct {
	Effect    string   `mapstructure:"effect"`
	Actions   []string `mapstructure:"actions"`
	Resources []string `mapstructure:"resources"`
}

// Load reads the deployment file at path. A .env file next to it is loaded
// first; CICD_* environment variables override file values (CICD_REGION,
// CICD_ACCOUNTS_PROD, ...).
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if err := LoadEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CICD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("region", "us-east-1")
	v.SetDefault("stackName", "cicd-pipelines")
	v.SetDefault("triggers", []string{string(topology.TriggerMaster)})
	v.SetDefault("alerts.topicName", "cicd-notifications")
	v.SetDefault("alerts.displayName", "CICD pipeline failed")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config file - malformed YAML: %w", err)
	}
	return &f, nil
}

// Descriptors converts the configured services. They are not validated here.
func (f *File) Descriptors() []service.Descriptor {
	out := make([]service.Descriptor, 0, len(f.Services))
	for _, s := range f.Services {
		out = append(out, service.Descriptor{
			ServiceName: s.ServiceName,
			Sources: service.SourceLocations{
				Owner:       s.Sources.Owner,
				RepoService: s.Sources.RepoService,
				RepoMVP:     s.Sources.RepoMVP,
				Branch:      s.Sources.Branch,
			},
			SecretReference:   s.SecretReference,
			DeployPermissions: grants(s.DeployPermissions),
			AccessPermissions: grants(s.AccessPermissions),
			TargetStorage: service.StorageTargets{
				Staging: s.TargetStorage.Staging,
				Prod:    s.TargetStorage.Prod,
			},
		})
	}
	return out
}

func (f *File) StageAccounts() service.StageAccounts {
	accounts := make(service.StageAccounts, len(f.Accounts))
	for k, v := range f.Accounts {
		accounts[strings.ToLower(k)] = v
	}
	return accounts
}

func (f *File) PipelineTriggers() ([]topology.Trigger, error) {
	out := make([]topology.Trigger, 0, len(f.Triggers))
	for _, t := range f.Triggers {
		trigger, err := topology.ParseTrigger(t)
		if err != nil {
			return nil, fmt.Errorf("triggers: %w", err)
		}
		out = append(out, trigger)
	}
	return out, nil
}

// AlertTopicArn is the ARN of the alerts topic in the tools account, or
// empty when alerts are disabled or the tools account is not configured.
func (f *File) AlertTopicArn() string {
	tools := f.StageAccounts()[service.AccountTools]
	if f.Alerts.Disabled || tools == "" {
		return ""
	}
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", f.Region, tools, f.Alerts.TopicName)
}

// Alerting returns the notification target for pipeline failures, or nil.
func (f *File) Alerting() *topology.NotificationTarget {
	topic := f.AlertTopicArn()
	if topic == "" {
		return nil
	}
	return &topology.NotificationTarget{Topic: topic}
}

// Plan validates every service and builds every pipeline topology.
func (f *File) Plan() ([]service.Valid, []topology.Topology, error) {
	triggers, err := f.PipelineTriggers()
	if err != nil {
		return nil, nil, err
	}
	return topology.Plan(f.Descriptors(), triggers, f.StageAccounts(), f.Alerting())
}

func grants(statements []StatementConfig) []service.PermissionGrant {
	if len(statements) == 0 {
		return nil
	}
	out := make([]service.PermissionGrant, 0, len(statements))
	for _, s := range statements {
		effect := service.Effect(s.Effect)
		if effect == "" {
			effect = service.EffectAllow
		}
		resources := s.Resources
		if len(resources) == 0 {
			resources = []string{"*"}
		}
		out = append(out, service.NewPermissionGrant(effect, s.Actions, resources))
	}
	return out
}
