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

package person

import (
	"fmt"

	"github.com/tomoncle/crud/database"
	"github.com/uptrace/bun"
)

// Person is a named contact. Empty Name or Email is stored as NULL.
type Person struct {
	bun.BaseModel `bun:"table:persons,alias:p"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Name  string `bun:"name,nullzero" json:"name,omitempty"`
	Email string `bun:"email,nullzero" json:"email,omitempty"`
}

// TextFields lists the fields normalized from blank to absent before writes.
func (p *Person) TextFields() []any {
	return []any{&p.Name, &p.Email}
}

func (p *Person) String() string {
	return fmt.Sprintf("Person{id=%d, name=%q, email=%q}", p.ID, p.Name, p.Email)
}

// Model registers the persons table for migrations.
func Model() database.SQLModel {
	return database.NewModelAdapter((*Person)(nil), 0)
}
