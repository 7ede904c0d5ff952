package store

import "time"

type League struct {
	ID             int    `gorm:"primaryKey"`
	Name           string `gorm:"uniqueIndex"`
	AllowMultiTeam bool
	IsCurrent      bool
}

type Team struct {
	ID       int `gorm:"primaryKey"`
	LeagueID int `gorm:"index"`
	Name     string
}

type Player struct {
	ID                int `gorm:"primaryKey"`
	LeagueID          int `gorm:"index"`
	Name              string
	ProfilePictureURL string
	FavoritePosition  string
	OtherPositions    string
	CareerGoals       int
	CareerAssists     int
	CareerYellowCards int
	CareerRedCards    int
}

// PlayerTeam is the assignment row; Position is the pitch-view slot,
// "bench" for the simple board.
type PlayerTeam struct {
	PlayerID int `gorm:"primaryKey"`
	TeamID   int `gorm:"primaryKey"`
	Position string
}

// DraftPick is the ordered draft history for a league. Pick numbers are
// resequenced when an earlier pick is undone.
type DraftPick struct {
	ID         int `gorm:"primaryKey"`
	LeagueID   int `gorm:"index"`
	TeamID     int
	PlayerID   int
	PickNumber int
	CreatedAt  time.Time
}
