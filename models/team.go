package models

type Team struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	Categories  []Category `json:"categories"`
}

// TeamSummary is a team as seen from one category.
type TeamSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
}

// TeamCategory is a row of the team_categories join table.
type TeamCategory struct {
	TeamID     string
	CategoryID string
}

// TeamDetails is a team with its category links, returned by create and update.
type TeamDetails struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}
