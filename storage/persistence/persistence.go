package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/storage"
)

type Persistence struct {
	dbConn *sql.DB
}

func New(dbConn *sql.DB) storage.Storage {
	return &Persistence{
		dbConn: dbConn,
	}
}

// Load implements storage.Storage.
func (p *Persistence) Load(ctx context.Context) ([]model.Account, error) {
	loadQuery := `SELECT id, asset_code, asset_scale
				 FROM account
				 WHERE is_enabled=true`

	var accounts []model.Account

	rows, err := p.dbConn.QueryContext(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := model.Account{}

		if err := rows.Scan(&a.ID, &a.AssetCode, &a.AssetScale); err != nil {
			return accounts, fmt.Errorf("scan account: %w", err)
		}

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
