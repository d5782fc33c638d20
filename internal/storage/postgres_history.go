package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/ride-companion/internal/models"
)

type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(dsn string) (*PostgresHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresHistory{db: db}, nil
}

func (p *PostgresHistory) SaveRide(ctx context.Context, rec models.RideRecord) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ride_history(id, passenger_name, pickup, destination, total_trip_minutes, emergency, started_at, finished_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.PassengerName, rec.Pickup, rec.Destination, rec.TotalTripMinutes, rec.Emergency, rec.StartedAt, rec.FinishedAt)
	return err
}

func (p *PostgresHistory) ListRides(ctx context.Context, limit int) ([]models.RideRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, passenger_name, pickup, destination, total_trip_minutes, emergency, started_at, finished_at
		 FROM ride_history ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.RideRecord
	for rows.Next() {
		var r models.RideRecord
		if err := rows.Scan(&r.ID, &r.PassengerName, &r.Pickup, &r.Destination, &r.TotalTripMinutes, &r.Emergency, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresHistory) Close() error { return p.db.Close() }
