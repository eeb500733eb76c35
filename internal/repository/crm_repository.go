package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
)

// CRMRepository reads the customer reference dimension: accounts joined 1:1
// with addresses, plus each account's devices. Accounts without a phone
// number cannot be matched to CDR data and are excluded at the source.
type CRMRepository struct {
	db *sqlx.DB
}

// NewCRMRepository creates a customer dimension reader.
func NewCRMRepository(db *sqlx.DB) repository.CustomerReader {
	return &CRMRepository{db: db}
}

type accountRow struct {
	AccountID     int            `db:"account_id"`
	OwnerName     sql.NullString `db:"owner_name"`
	Email         sql.NullString `db:"email"`
	PhoneNumber   sql.NullString `db:"phone_number"`
	StreetAddress sql.NullString `db:"street_address"`
	City          sql.NullString `db:"city"`
	State         sql.NullString `db:"state"`
	PostalCode    sql.NullString `db:"postal_code"`
	Country       sql.NullString `db:"country"`
}

type deviceRow struct {
	AccountID  int            `db:"account_id"`
	DeviceID   int            `db:"device_id"`
	DeviceName sql.NullString `db:"device_name"`
	DeviceType sql.NullString `db:"device_type"`
	DeviceOS   sql.NullString `db:"device_os"`
}

func (r *CRMRepository) ReadCustomers(ctx context.Context) ([]models.Customer, error) {
	const accountsQ = `SELECT
			a.account_id, a.owner_name, a.email, a.phone_number,
			addr.street_address, addr.city, addr.state, addr.postal_code, addr.country
		FROM crm_system.accounts a
		LEFT JOIN crm_system.addresses addr ON a.account_id = addr.account_id
		WHERE a.phone_number IS NOT NULL
		ORDER BY a.account_id`

	var accounts []accountRow
	if err := r.db.SelectContext(ctx, &accounts, accountsQ); err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	const devicesQ = `SELECT account_id, device_id, device_name, device_type, device_os
		FROM crm_system.devices
		ORDER BY account_id, device_id`

	var devices []deviceRow
	if err := r.db.SelectContext(ctx, &devices, devicesQ); err != nil {
		return nil, fmt.Errorf("read devices: %w", err)
	}

	devicesByAccount := make(map[int][]models.Device, len(accounts))
	for _, d := range devices {
		devicesByAccount[d.AccountID] = append(devicesByAccount[d.AccountID], models.Device{
			DeviceID:   d.DeviceID,
			DeviceName: d.DeviceName.String,
			DeviceType: d.DeviceType.String,
			DeviceOS:   d.DeviceOS.String,
		})
	}

	customers := make([]models.Customer, 0, len(accounts))
	for _, a := range accounts {
		customers = append(customers, models.Customer{
			AccountID: a.AccountID,
			OwnerName: a.OwnerName.String,
			Email:     a.Email.String,
			Phone:     a.PhoneNumber.String,
			Address: models.Address{
				StreetAddress: a.StreetAddress.String,
				City:          a.City.String,
				State:         a.State.String,
				PostalCode:    a.PostalCode.String,
				Country:       a.Country.String,
			},
			Devices: devicesByAccount[a.AccountID],
		})
	}
	return customers, nil
}
