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
	"reflect"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager creates the tables of registered models and records
// which tables it created.
type MigrationManager struct {
	db              *bun.DB
	logger          Logger
	withForeignKeys bool
}

// Migration is a row of the migration tracking table.
type Migration struct {
	bun.BaseModel `bun:"table:crud_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at,notnull"`
	Description string    `bun:"description"`
}

// NewMigrationManager constructs a MigrationManager on db.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{db: db, logger: logger}
}

// WithForeignKeys makes created tables carry the foreign keys declared by
// bun relation tags.
func (mm *MigrationManager) WithForeignKeys(enable bool) *MigrationManager {
	mm.withForeignKeys = enable
	return mm
}

// RunMigrations creates the tracking table, then one table per registered
// model in priority order. Each table is created with its tracking row in a
// single transaction; existing tables are left untouched.
func (mm *MigrationManager) RunMigrations(ctx context.Context, registry ModelRegistry) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	if registry == nil {
		return nil
	}

	applied, err := mm.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, model := range registry.Models() {
		name, err := mm.TableName(model.Instance())
		if err != nil {
			return err
		}
		version := "table:" + name
		if _, ok := applied[version]; ok {
			continue
		}
		if err := mm.runMigration(ctx, version, name, model.Instance()); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!", "models", len(registry.Models()))
	}
	return nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, version, table string, instance interface{}) error {
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewCreateTable().Model(instance).IfNotExists()
		if mm.withForeignKeys {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     version,
			Name:        table,
			AppliedAt:   time.Now(),
			Description: fmt.Sprintf("create table %s for %s", table, getModelName(instance)),
		}).Exec(ctx)
		if err != nil {
			return err
		}
		if mm.logger != nil {
			mm.logger.Debug("Migration applied", "version", version)
		}
		return nil
	})
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	migrations, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	versions := make(map[string]struct{}, len(migrations))
	for _, m := range migrations {
		versions[m.Version] = struct{}{}
	}
	return versions, nil
}

// GetAppliedMigrations lists the tracking rows ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().Model(&migrations).Order("version ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return migrations, nil
}

// DropTables drops the tables of the registered models in reverse priority
// order and forgets their tracking rows.
func (mm *MigrationManager) DropTables(ctx context.Context, registry ModelRegistry) error {
	models := registry.Models()
	for i := len(models) - 1; i >= 0; i-- {
		instance := models[i].Instance()
		name, err := mm.TableName(instance)
		if err != nil {
			return err
		}
		if _, err := mm.db.NewDropTable().Model(instance).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
		_, err = mm.db.NewDelete().Model((*Migration)(nil)).Where("version = ?", "table:"+name).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to forget migration of %s: %w", name, err)
		}
	}
	return nil
}

// TableName resolves the SQL table name bun uses for a model instance.
func (mm *MigrationManager) TableName(instance interface{}) (string, error) {
	t := reflect.TypeOf(instance)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "", fmt.Errorf("model %T is not a struct pointer", instance)
	}
	return mm.db.Dialect().Tables().Get(t).Name, nil
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
