package repository

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestTranslateMySQLError(t *testing.T) {
	assert.ErrorIs(t, translateMySQLError(&mysql.MySQLError{Number: mysqlErrDeadlock}), ErrConflict)
	assert.ErrorIs(t, translateMySQLError(&mysql.MySQLError{Number: mysqlErrLockWaitTimeout}), ErrConflict)

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.Same(t, dup, translateMySQLError(dup))

	other := errors.New("connection refused")
	assert.Equal(t, other, translateMySQLError(other))
}
