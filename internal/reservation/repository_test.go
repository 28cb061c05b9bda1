package reservation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsSerializationFailure(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	require.True(t, isSerializationFailure(serialization))
	require.True(t, isSerializationFailure(fmt.Errorf("commit: %w", serialization)))

	require.False(t, isSerializationFailure(nil))
	require.False(t, isSerializationFailure(errors.New("connection reset")))
	require.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, isSerializationFailure(ErrTableBooked))
}
