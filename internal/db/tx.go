package db

import (
	"database/sql"
	"errors"
)

// MakeTx is a function that creates a db transaction, discard is safe to
// defer and does nothing once commit succeeded.
type MakeTx = func() (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(dbtx *sql.DB) MakeTx {
	return func() (tx *Queries, discard, commit func() error, err error) {
		sqltx, err := dbtx.Begin()
		if err != nil {
			return nil, nil, nil, err
		}
		txqry := New(sqltx)
		return txqry,
			func() error {
				err := sqltx.Rollback()
				if errors.Is(err, sql.ErrTxDone) {
					return nil
				}
				return err
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}
