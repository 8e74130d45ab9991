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

package types

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Direction is the sort direction of an Order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

var _ BaseEnum = Direction(0)

func (d Direction) IsValid() bool {
	return d == Ascending || d == Descending
}

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

// String returns the SQL keyword of the direction.
func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ASC"
	case Descending:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d Direction) Name() string {
	return strings.ToLower(d.String())
}

func (d Direction) Desc() string {
	switch d {
	case Ascending:
		return "ascending order"
	case Descending:
		return "descending order"
	default:
		return IllegalDesc
	}
}

// ParseDirection maps "asc"/"desc" (any case) to a Direction.
func ParseDirection(s string) Direction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC", "":
		return Ascending
	case "DESC":
		return Descending
	default:
		return Direction(IllegalValue)
	}
}
