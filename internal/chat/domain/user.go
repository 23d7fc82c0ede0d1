package domain

import "time"

// User state levels. Admin operations accept LevelModerator and above.
const (
	LevelRestricted = -1
	LevelUser       = 0
	LevelTrusted    = 1
	LevelModerator  = 2
	LevelAdmin      = 3
)

// AllLevels is the level set accepted when an operation does not restrict it.
var AllLevels = []int{LevelRestricted, LevelUser, LevelTrusted, LevelModerator, LevelAdmin}

// Presence preferences a user can choose. Offline hides them.
const (
	StatusOffline = iota
	StatusOnline
	StatusAway
	StatusDoNotDisturb
)

var statusNames = [...]string{"Offline", "Online", "Away", "Do Not Disturb"}

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	Level        int
	Status       int // presence preference
	Quote        string

	// Email is held encrypted; both are empty when no email is set.
	EmailKeyID      string
	EmailCiphertext string

	Banned         bool
	Deleted        bool
	SuspendedUntil *time.Time
	DeleteAfter    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Suspended(now time.Time) bool {
	return u.SuspendedUntil != nil && u.SuspendedUntil.After(now)
}

func (u User) HasEmail() bool { return u.EmailKeyID != "" }

// Presence renders the status shown to other users.
func (u User) Presence(online bool, now time.Time) string {
	switch {
	case u.Banned:
		return "Banned"
	case u.Suspended(now):
		return "Suspended"
	case !online:
		return "Offline"
	case u.Status < 0 || u.Status >= len(statusNames):
		return statusNames[StatusOnline]
	}
	return statusNames[u.Status]
}

// Profile is the user record without its security block.
type Profile struct {
	ID          string     `json:"_id"`
	Username    string     `json:"username"`
	Level       int        `json:"lvl"`
	Quote       string     `json:"quote"`
	Status      string     `json:"status,omitempty"`
	Email       string     `json:"email,omitempty"`
	DeleteAfter *time.Time `json:"delete_after,omitempty"`
	Created     time.Time  `json:"created"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Level:       u.Level,
		Quote:       u.Quote,
		DeleteAfter: u.DeleteAfter,
		Created:     u.CreatedAt,
	}
}
