// Package types defines public request/response payloads for football-api.
package types

// Page is the list envelope. Previous and Next are null at the ends of the
// collection; Count is the size of the whole collection.
type Page[T any] struct {
	Count    int     `json:"count"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
	Result   []T     `json:"result"`
}

// Message is the success envelope of every mutating operation.
type Message struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

// Error is the failure envelope of every operation.
type Error struct {
	Error string `json:"error"`
}

// Health is returned by /health and /readiness.
type Health struct {
	Status string `json:"status"`
}

// Version is returned by /version.
type Version struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Player is a player record.
type Player struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality"`
	BirthYear     int    `json:"birth_year"`
	MatchesPlayed int    `json:"matches_played"`
	GoalsScored   int    `json:"goals_scored"`
	Ranking       int    `json:"ranking"`
	Position      string `json:"position"`
}

// Team is a team record.
type Team struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Ranking     int    `json:"ranking"`
	YearFounded int    `json:"year_founded"`
}

// PlayerTeam links a player to a team.
type PlayerTeam struct {
	ID       int64 `json:"id,omitempty"`
	PlayerID int64 `json:"player_id"`
	TeamID   int64 `json:"team_id"`
}
