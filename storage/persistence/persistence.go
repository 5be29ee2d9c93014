package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/kylycht/fxrates/storage"
)

type Persistence struct {
	dbConn *sql.DB
}

func New(dbConn *sql.DB) storage.Storage {
	return &Persistence{
		dbConn: dbConn,
	}
}

// SaveObservation implements storage.Storage.
func (p *Persistence) SaveObservation(ctx context.Context, obs model.RateObservation) error {
	insertQuery := `INSERT INTO rate_observation
				(base_currency, target_currency, rate, observed_at, source_name)
			 VALUES ($1, $2, $3, $4, $5)`

	_, err := p.dbConn.ExecContext(ctx, insertQuery,
		strings.ToUpper(obs.Base),
		strings.ToUpper(obs.Target),
		obs.Rate,
		obs.ObservedAt,
		obs.Source,
	)

	return err
}

// LatestRate implements storage.Storage.
func (p *Persistence) LatestRate(ctx context.Context, base, target string) (model.RateObservation, bool, error) {
	latestQuery := `SELECT base_currency, target_currency, rate, observed_at, source_name
			 FROM rate_observation
			 WHERE base_currency=$1 AND target_currency=$2
			 ORDER BY observed_at DESC
			 LIMIT 1`

	obs := model.RateObservation{}

	row := p.dbConn.QueryRowContext(ctx, latestQuery, strings.ToUpper(base), strings.ToUpper(target))
	if err := row.Scan(&obs.Base, &obs.Target, &obs.Rate, &obs.ObservedAt, &obs.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RateObservation{}, false, nil
		}
		return model.RateObservation{}, false, err
	}

	return obs, true, nil
}

// RatesByPeriod implements storage.Storage.
func (p *Persistence) RatesByPeriod(ctx context.Context, base, target string, from, to time.Time) ([]model.RateObservation, error) {
	periodQuery := `SELECT base_currency, target_currency, rate, observed_at, source_name
			 FROM rate_observation
			 WHERE base_currency=$1 AND target_currency=$2
			   AND observed_at BETWEEN $3 AND $4
			 ORDER BY observed_at ASC`

	rows, err := p.dbConn.QueryContext(ctx, periodQuery, strings.ToUpper(base), strings.ToUpper(target), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservations(rows)
}

// AllLatestRates implements storage.Storage.
func (p *Persistence) AllLatestRates(ctx context.Context) ([]model.RateObservation, error) {
	allLatestQuery := `SELECT DISTINCT ON (base_currency, target_currency)
				base_currency, target_currency, rate, observed_at, source_name
			 FROM rate_observation
			 ORDER BY base_currency, target_currency, observed_at DESC`

	rows, err := p.dbConn.QueryContext(ctx, allLatestQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanObservations(rows)
}

// TrackedCurrencies implements storage.Storage.
func (p *Persistence) TrackedCurrencies(ctx context.Context) ([]model.Currency, error) {
	loadQuery := `SELECT code, display_name
			 FROM currency
			 WHERE is_tracked=true`

	var currencies []model.Currency

	rows, err := p.dbConn.QueryContext(ctx, loadQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c := model.Currency{}

		if err := rows.Scan(&c.Code, &c.DisplayName); err != nil {
			return currencies, err
		}

		currencies = append(currencies, c)
	}

	return currencies, rows.Err()
}

func scanObservations(rows *sql.Rows) ([]model.RateObservation, error) {
	var observations []model.RateObservation

	for rows.Next() {
		obs := model.RateObservation{}

		if err := rows.Scan(&obs.Base, &obs.Target, &obs.Rate, &obs.ObservedAt, &obs.Source); err != nil {
			return observations, err
		}

		observations = append(observations, obs)
	}

	return observations, rows.Err()
}
