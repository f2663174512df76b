package aws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineFamilies(t *testing.T) {
	tests := []struct {
		engine   string
		mysql    bool
		postgres bool
	}{
		{"mysql", true, false},
		{"mariadb", true, false},
		{"aurora-mysql", true, false},
		{"postgres", false, true},
		{"aurora-postgresql", false, true},
		{"oracle-ee", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			db := &DBInstance{Engine: tt.engine}
			assert.Equal(t, tt.mysql, db.IsMySQLFamily())
			assert.Equal(t, tt.postgres, db.IsPostgresFamily())
		})
	}
}

func TestEngineTools(t *testing.T) {
	mysqlDB := &DBInstance{Engine: "mysql"}
	tool, err := mysqlDB.ClientTool()
	assert.NoError(t, err)
	assert.Equal(t, "mysql", tool)

	dump, err := mysqlDB.DumpTool()
	assert.NoError(t, err)
	assert.Equal(t, "mysqldump", dump)

	env, err := mysqlDB.PasswordEnv()
	assert.NoError(t, err)
	assert.Equal(t, "MYSQL_PWD", env)

	pgDB := &DBInstance{Engine: "postgres"}
	tool, err = pgDB.ClientTool()
	assert.NoError(t, err)
	assert.Equal(t, "psql", tool)

	env, err = pgDB.PasswordEnv()
	assert.NoError(t, err)
	assert.Equal(t, "PGPASSWORD", env)

	oracle := &DBInstance{Engine: "oracle-ee"}
	_, err = oracle.ClientTool()
	assert.Error(t, err)
	_, err = oracle.DumpTool()
	assert.Error(t, err)
	_, err = oracle.PasswordEnv()
	assert.Error(t, err)
}
