package db

// SessionRow is the stored form of a login session. Slices are kept as JSON
// text and times as unix seconds so the schema stays driver-agnostic.
type SessionRow struct {
	ID            string `db:"id"`
	UserID        int64  `db:"user_id"`
	Login         string `db:"login"`
	Name          string `db:"name"`
	AvatarURL     string `db:"avatar_url"`
	AccessToken   string `db:"access_token"`
	Organizations string `db:"organizations"`
	Teams         string `db:"teams"`
	CreatedAt     int64  `db:"created_at"`
	ExpiresAt     int64  `db:"expires_at"`
}
