package main

import (
	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/config"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/rbac"
	"github.com/Azure/cosmos-explorer-sub010/internal/remediation"
)

type services struct {
	cfg        config.Config
	arm        *arm.Client
	resolver   *prereq.Resolver
	remediator remediation.Remediator
}

func newServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newServicesFromConfig(cfg)
}

func newServicesFromConfig(cfg config.Config) (*services, error) {
	var tokens arm.TokenProvider
	if cfg.UsesClientCredentials() {
		cc, err := arm.NewClientCredentials(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, arm.ClientCredentialsOptions{
			AuthorityBaseURL: cfg.AuthorityURL,
		})
		if err != nil {
			return nil, err
		}
		tokens = cc
	} else {
		tokens = arm.StaticToken(cfg.AccessToken)
	}

	client, err := arm.NewWithOptions(tokens, arm.Options{
		Endpoint:          cfg.ARMEndpoint,
		APIVersion:        cfg.ARMAPIVersion,
		OperationInterval: cfg.OperationPoll,
		MaxRetries:        cfg.ARMMaxRetries,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		cfg: cfg,
		arm: client,
		resolver: &prereq.Resolver{
			Accounts: client,
			Access:   rbac.Evaluator{Roles: client},
		},
		remediator: remediation.Remediator{ARM: client},
	}, nil
}
