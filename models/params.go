package models

// SearchParams scopes a single adapter search.
type SearchParams struct {
	Date      string     `json:"date"`
	TimeRange *TimeRange `json:"timeRange,omitempty"`
	Players   int        `json:"players,omitempty"`
}

// PlayerCount defaults to a single player.
func (p SearchParams) PlayerCount() int {
	if p.Players < 1 {
		return 1
	}
	return p.Players
}

// BookingParams scopes a single adapter booking call.
type BookingParams struct {
	TeeTimeID string   `json:"teeTimeId"`
	Players   int      `json:"players"`
	UserInfo  UserInfo `json:"userInfo"`
}

type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
