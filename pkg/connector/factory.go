// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/jira"
)

// ConnectorFactory builds the connections a synchronization run needs
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a factory for cfg
func NewConnectorFactory(cfg *config.Config) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: zap.L().Named("connector-factory"),
	}
}

// CreateStoreConnector opens and validates the relational store
func (f *ConnectorFactory) CreateStoreConnector(ctx context.Context) (*StoreConnector, error) {
	conn, err := NewStoreConnector(ctx, f.cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store validation failed: %w", err)
	}

	return conn, nil
}

// CreateJiraClient builds the Jira API client
func (f *ConnectorFactory) CreateJiraClient() (*jira.Client, error) {
	f.logger.Info("Creating Jira client",
		zap.String("baseURL", f.cfg.Jira.BaseURL),
		zap.String("project", f.cfg.Jira.Project),
		zap.Int("pageSize", f.cfg.Jira.PageSize),
		zap.Float64("requestsPerSecond", f.cfg.Jira.RequestsPerSecond))

	client, err := jira.NewClient(f.cfg.Jira, jira.WithLogger(zap.L().Named("jira-client")))
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	return client, nil
}
