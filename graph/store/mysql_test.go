package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMySQLStoreContract runs the shared contract against a real MySQL
// instance. Set MYSQL_TEST_DSN to enable, e.g.
//
//	MYSQL_TEST_DSN="root:root@tcp(localhost:3306)/graphrun_test" go test ./graph/store/
//
// The test truncates the graphs and runs tables before running.
func TestMySQLStoreContract(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set, skipping MySQL integration test")
	}

	s, err := NewMySQLStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"graphs", "runs"} {
		_, err := s.db.Exec("TRUNCATE TABLE " + table)
		require.NoError(t, err)
	}

	runStoreContract(t, s)
}
