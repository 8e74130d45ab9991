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
)

// Open connects with cfg and, when migrate-on-startup is enabled, creates the
// tables of models. A nil cfg means DefaultConfig with an in-memory SQLite
// database.
func Open(ctx context.Context, cfg *Config, models ...SQLModel) (AbstractDatabaseManager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
		cfg.ConnectionConfig.Type = "sqlite"
		cfg.ConnectionConfig.DBName = memoryDSN
	}
	factory := NewDatabaseFactory(NewModelRegistry(models...))
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		_ = manager.Disconnect()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return manager, nil
}

// OpenFile loads a YAML configuration file and calls Open with it.
func OpenFile(ctx context.Context, path string, models ...SQLModel) (AbstractDatabaseManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, models...)
}
