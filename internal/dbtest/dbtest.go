// Package dbtest provides an in-process SQLite database carrying the same
// tables as the MySQL migrations, for handler and job tests.
package dbtest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	role TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'UNVERIFIED',
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	verification_code TEXT NULL,
	verification_expiry DATETIME NULL,
	verification_attempts INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE brands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE,
	company_name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	industry TEXT NULL,
	website TEXT NULL,
	logo_url TEXT NULL,
	description TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE influencers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	bio TEXT NULL,
	niche TEXT NULL,
	location TEXT NULL,
	avatar_url TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE influencer_platforms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	influencer_id INTEGER NOT NULL,
	platform TEXT NOT NULL,
	handle TEXT NOT NULL DEFAULT '',
	external_id TEXT NOT NULL DEFAULT '',
	followers INTEGER NOT NULL DEFAULT 0,
	following INTEGER NOT NULL DEFAULT 0,
	likes INTEGER NOT NULL DEFAULT 0,
	media_count INTEGER NOT NULL DEFAULT 0,
	engagement_rate REAL NOT NULL DEFAULT 0,
	access_token TEXT NULL,
	refresh_token TEXT NULL,
	token_expiry DATETIME NULL,
	refresh_expiry DATETIME NULL,
	connected INTEGER NOT NULL DEFAULT 0,
	last_synced_at DATETIME NULL,
	last_error TEXT NULL,
	UNIQUE (influencer_id, platform)
);
CREATE TABLE rate_cards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	influencer_id INTEGER NOT NULL,
	platform TEXT NOT NULL,
	service_type TEXT NOT NULL,
	price REAL NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	description TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (influencer_id, platform, service_type)
);
CREATE TABLE campaigns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	brand_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	slug TEXT NOT NULL,
	description TEXT NULL,
	platform TEXT NULL,
	budget REAL NOT NULL DEFAULT 0,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'DRAFT',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE campaign_invitations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INTEGER NOT NULL,
	influencer_id INTEGER NOT NULL,
	message TEXT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	responded_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	UNIQUE (campaign_id, influencer_id)
);
CREATE TABLE mous (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INTEGER NOT NULL,
	brand_id INTEGER NOT NULL,
	influencer_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	deliverables TEXT NOT NULL,
	amount REAL NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	document_url TEXT NULL,
	brand_approval TEXT NOT NULL DEFAULT 'PENDING',
	influencer_approval TEXT NOT NULL DEFAULT 'PENDING',
	admin_approval TEXT NOT NULL DEFAULT 'PENDING',
	status TEXT NOT NULL DEFAULT 'PENDING',
	rejection_reason TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE campaign_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INTEGER NOT NULL,
	influencer_id INTEGER NOT NULL,
	platform TEXT NOT NULL,
	followers INTEGER NOT NULL,
	likes INTEGER NOT NULL,
	media_count INTEGER NOT NULL,
	followers_growth INTEGER NOT NULL,
	likes_growth INTEGER NOT NULL,
	growth_rate REAL NOT NULL,
	captured_at DATETIME NOT NULL
);
CREATE TABLE notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	message TEXT NOT NULL,
	link TEXT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE TABLE oauth_states (
	state TEXT NOT NULL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	platform TEXT NOT NULL,
	code_verifier TEXT NOT NULL,
	expires_at DATETIME NOT NULL
);
`

// Open returns a fresh SQLite database in the test's temp dir with the
// marketplace tables created. The pool is limited to one connection so a
// handler that forgets to use its transaction shows up as a hang, not a flake.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "collabhub.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// Fixture inserts rows with sensible defaults. Every helper fails the test on error.
type Fixture struct {
	t  testing.TB
	db *sql.DB
	n  int
}

// NewFixture wraps db for seeding.
func NewFixture(t testing.TB, db *sql.DB) *Fixture {
	return &Fixture{t: t, db: db}
}

func (f *Fixture) exec(query string, args ...any) int64 {
	f.t.Helper()
	res, err := f.db.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("fixture insert failed: %v\nquery: %s", err, query)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("fixture last insert id: %v", err)
	}
	return id
}

// User inserts an ACTIVE user with the given role and returns its id.
func (f *Fixture) User(role, passwordHash string) int64 {
	f.t.Helper()
	f.n++
	now := time.Now()
	return f.exec(`INSERT INTO users (role, status, email, password_hash, full_name, created_at, updated_at)
		VALUES (?, 'ACTIVE', ?, ?, ?, ?, ?)`,
		role, fmt.Sprintf("user%d@example.com", f.n), passwordHash, fmt.Sprintf("User %d", f.n), now, now)
}

// Brand inserts a brand user plus profile and returns (userID, brandID).
func (f *Fixture) Brand(company string) (int64, int64) {
	f.t.Helper()
	userID := f.User("BRAND", "x")
	now := time.Now()
	brandID := f.exec(`INSERT INTO brands (user_id, company_name, slug, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, company, fmt.Sprintf("brand-%d", userID), now, now)
	return userID, brandID
}

// Influencer inserts an influencer user plus profile and returns (userID, influencerID).
func (f *Fixture) Influencer(name, niche string) (int64, int64) {
	f.t.Helper()
	userID := f.User("INFLUENCER", "x")
	now := time.Now()
	infID := f.exec(`INSERT INTO influencers (user_id, display_name, niche, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, name, niche, now, now)
	return userID, infID
}

// Admin inserts an admin user and returns its id.
func (f *Fixture) Admin() int64 {
	f.t.Helper()
	return f.User("ADMIN", "x")
}

// Campaign inserts a campaign with the given status and window.
func (f *Fixture) Campaign(brandID int64, status string, start, end time.Time) int64 {
	f.t.Helper()
	f.n++
	now := time.Now()
	return f.exec(`INSERT INTO campaigns (brand_id, title, slug, budget, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, 1000, ?, ?, ?, ?, ?)`,
		brandID, fmt.Sprintf("Campaign %d", f.n), fmt.Sprintf("campaign-%d", f.n), start, end, status, now, now)
}

// Invitation inserts an invitation with the given status.
func (f *Fixture) Invitation(campaignID, influencerID int64, status string) int64 {
	f.t.Helper()
	return f.exec(`INSERT INTO campaign_invitations (campaign_id, influencer_id, status, created_at) VALUES (?, ?, ?, ?)`,
		campaignID, influencerID, status, time.Now())
}

// Platform inserts a connected platform row with tokens and stats.
func (f *Fixture) Platform(influencerID int64, platform string, followers, likes int64, tokenExpiry time.Time) int64 {
	f.t.Helper()
	return f.exec(`INSERT INTO influencer_platforms
		(influencer_id, platform, handle, external_id, followers, likes, media_count, access_token, refresh_token, token_expiry, connected)
		VALUES (?, ?, ?, ?, ?, ?, 10, 'access', 'refresh', ?, 1)`,
		influencerID, platform, fmt.Sprintf("handle%d", influencerID), fmt.Sprintf("ext-%d", influencerID), followers, likes, tokenExpiry)
}

// Exec runs an arbitrary statement against the fixture database.
func (f *Fixture) Exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.db.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec failed: %v\nquery: %s", err, query)
	}
}

// Count returns the result of a COUNT(*) style query.
func (f *Fixture) Count(query string, args ...any) int {
	f.t.Helper()
	var n int
	if err := f.db.QueryRow(query, args...).Scan(&n); err != nil {
		f.t.Fatalf("fixture count failed: %v\nquery: %s", err, query)
	}
	return n
}
