package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestUpdateStatus_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectExec("UPDATE `remit_transaction` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), nil, 1,
		"PENDING", "PENDING_DESTINATION_REVIEW", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_ConcurrentWriterLoses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	// 条件更新没有命中任何行：状态已被并发写者改走
	mock.ExpectExec("UPDATE `remit_transaction` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, 1,
		"PENDING", "PENDING_DESTINATION_REVIEW", nil)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `remit_transaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCommissionPaid_OnlyUnpaidRowsAffected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	// 三个ID里只有两笔尚未标记，条件更新只命中这两行
	mock.ExpectExec("UPDATE `remit_transaction` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.MarkCommissionPaid(context.Background(), nil,
		[]int64{1, 2, 3}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCommissionPaid_RepeatIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	// 重复标记同一批ID：全部已付，零行命中，不报错
	mock.ExpectExec("UPDATE `remit_transaction` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.MarkCommissionPaid(context.Background(), nil,
		[]int64{1, 2, 3}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectExec("UPDATE `remit_transaction` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateFields(context.Background(), nil, 42,
		map[string]interface{}{"note": "更新备注"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
