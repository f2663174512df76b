package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpFileName(t *testing.T) {
	assert.Equal(t, "appdb_dump_20240315_090542.sql", DumpFileName("appdb", "20240315_090542"))
}

func TestRewriteDumpHost(t *testing.T) {
	dump := "-- MySQL dump 10.13\n-- Host: 127.0.0.1    Database: appdb\n-- Body follows\n"

	rewritten := rewriteDumpHost(dump, "127.0.0.1", "prod-db.mysql.database.azure.com")

	assert.Contains(t, rewritten, "-- Host: prod-db.mysql.database.azure.com    (via SSH tunnel from 127.0.0.1)")
	assert.NotContains(t, rewritten, "-- Host: 127.0.0.1")
	assert.Contains(t, rewritten, "-- Body follows")
}

func TestRewriteDumpHostOnlyFirstOccurrence(t *testing.T) {
	dump := "-- Host: 127.0.0.1\ndata mentioning -- Host: 127.0.0.1 again\n"

	rewritten := rewriteDumpHost(dump, "127.0.0.1", "server.example.com")

	assert.Contains(t, rewritten, "-- Host: 127.0.0.1 again")
}

func TestMySQLConnArgs(t *testing.T) {
	conn := MySQLConn{Host: "127.0.0.1", Port: 3307, User: "mysqladmin", Password: "secret"}

	assert.Equal(t, []string{"-h", "127.0.0.1", "-P", "3307", "-u", "mysqladmin"}, conn.baseArgs())
	assert.Equal(t, []string{"MYSQL_PWD=secret"}, conn.env())
}
