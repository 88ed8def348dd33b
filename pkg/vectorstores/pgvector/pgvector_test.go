package pgvector_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/effective-security/ragchat/pkg/vectorstores/internal/storetest"
	"github.com/effective-security/ragchat/pkg/vectorstores/pgvector"
	"github.com/stretchr/testify/require"
)

// PGVECTOR_TEST_DSN points to a PostgreSQL server with the vector extension available,
// e.g. started with `docker run -e POSTGRES_PASSWORD=postgres -p 5432:5432 pgvector/pgvector:pg17`
func Test_PgVectorStore(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN is not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("test_docs_%d", time.Now().UnixNano())
	st, err := pgvector.New(ctx, dsn, len(storetest.Vocabulary), &storetest.Embedder{}, pgvector.WithTableName(table))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	storetest.Run(t, st)
}
