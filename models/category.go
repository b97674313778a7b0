package models

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DelegateAssignment is one team/category pair a delegate is responsible for.
type DelegateAssignment struct {
	TeamID   string   `json:"teamId"`
	TeamName string   `json:"teamName"`
	Category Category `json:"category"`
}
