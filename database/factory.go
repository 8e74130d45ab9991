/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// BaseDatabaseFactory creates a configured database manager and initializes
// it with a model registry.
type BaseDatabaseFactory struct {
	manager  AbstractDatabaseManager
	registry ModelRegistry
	logger   Logger
}

// NewDatabaseFactory returns a factory logging through the "DATABASE"
// logger. registry may be nil when no tables are managed.
func NewDatabaseFactory(registry ModelRegistry) *BaseDatabaseFactory {
	if registry == nil {
		registry = NewModelRegistry()
	}
	return &BaseDatabaseFactory{
		registry: registry,
		logger:   GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from cfg after applying the
// DB_* environment overrides and validating the database type.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	cfg.ConnectionConfig.ApplyEnvOverrides()
	if err := cfg.ConnectionConfig.Validate(); err != nil {
		return nil, err
	}

	f.manager = NewDatabaseManager(&cfg.ConnectionConfig,
		WithMigrateConfig(cfg.DataMigrateConfig),
		WithManagerLogger(f.logger),
	)
	return f.manager, nil
}

// InitializeDatabase connects and, when runMigrations is set, creates the
// tables of the registered models.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx, f.registry); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	} else if db := f.manager.GetDB(); db != nil {
		db.RegisterModel(f.registry.Instances()...)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// Registry returns the models the factory migrates.
func (f *BaseDatabaseFactory) Registry() ModelRegistry {
	return f.registry
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
