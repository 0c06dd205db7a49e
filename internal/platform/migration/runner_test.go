// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tasker/internal/platform/migration"
)

func TestDatabaseURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/tasker", migration.DatabaseURL("postgres://u:p@db:5432/tasker"))
	assert.Equal(t, "pgx5://db/tasker", migration.DatabaseURL("postgresql://db/tasker"))
	assert.Equal(t, "pgx5://db/tasker", migration.DatabaseURL("pgx5://db/tasker"))
}
