package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intdb "railway/internal/db"
	"railway/internal/domain"
	"railway/internal/utils"
)

// MySQLStore composes the table repositories over one *sql.DB. The DSN must
// carry parseTime=true.
type MySQLStore struct {
	TrainRepository
	FareRepository
	InventoryRepository
	OrderRepository
	PassengerRepository

	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		TrainRepository:     TrainRepository{DB: db},
		FareRepository:      FareRepository{DB: db},
		InventoryRepository: InventoryRepository{DB: db},
		OrderRepository:     OrderRepository{DB: db},
		PassengerRepository: PassengerRepository{DB: db},
		db:                  db,
	}
}

// WithTx runs fn in one transaction. Inventory reads through the Tx take
// row locks. Lock conflicts are returned to the caller, not retried.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	err := intdb.WithTx(ctx, s.db, func(sqlTx *sql.Tx) error {
		return fn(mysqlTx{
			InventoryRepository: InventoryRepository{DB: sqlTx, ForUpdate: true},
			OrderRepository:     OrderRepository{DB: sqlTx},
		})
	})
	if intdb.IsRetryable(err) {
		utils.LogEvent(domain.RequestID(ctx), "storage", "lock_conflict", fmt.Sprintf("mysql_error=%d", intdb.MySQLErrorNumber(err)))
	}
	return err
}

type mysqlTx struct {
	InventoryRepository
	OrderRepository
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = mysqlTx{}
)
