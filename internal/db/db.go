package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureJobsTable()
	ensureTransactionsTable()
}

// ensureUsersTable creates the users table if it doesn't exist
func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            college_id TEXT NULL,
            profile_image_url TEXT NULL,
            wallet_balance BIGINT NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
            gigs_completed_as_runner INTEGER NOT NULL DEFAULT 0,
            gigs_posted_as_requester INTEGER NOT NULL DEFAULT 0,
            report_count INTEGER NOT NULL DEFAULT 0,
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            total_rating_stars BIGINT NOT NULL DEFAULT 0,
            total_rating_count BIGINT NOT NULL DEFAULT 0,
            upi_id TEXT NULL,
            bank_account JSONB NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to create users table: %v", err)
	}
}

// ensureJobsTable creates the jobs table and its query indices
func ensureJobsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS jobs (
            id UUID PRIMARY KEY,
            requester_id UUID NOT NULL REFERENCES users(id),
            runner_id UUID NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            pickup_location TEXT NOT NULL,
            drop_location TEXT NOT NULL,
            fee BIGINT NOT NULL,
            deadline TIMESTAMP WITH TIME ZONE NULL,
            payment_id TEXT NOT NULL,
            payment_status TEXT NOT NULL DEFAULT 'successful'
                CHECK (payment_status IN ('pending', 'successful')),
            status TEXT NOT NULL DEFAULT 'pending_bids'
                CHECK (status IN (
                    'pending_bids', 'accepted', 'picked_up',
                    'delivered_by_runner', 'completed', 'cancelled'
                )),
            applicants TEXT[] NOT NULL DEFAULT '{}',
            rating_given BOOLEAN NOT NULL DEFAULT FALSE,
            requester_name TEXT NOT NULL,
            requester_phone TEXT NOT NULL,
            runner_name TEXT NULL,
            runner_phone TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_jobs_requester ON jobs(requester_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_jobs_runner ON jobs(runner_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, created_at);
    `)
	if err != nil {
		log.Printf("failed to create jobs table: %v", err)
	}
}

// ensureTransactionsTable creates the wallet transactions log
func ensureTransactionsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
            status TEXT NOT NULL,
            reference TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to create transactions table: %v", err)
	}
}
