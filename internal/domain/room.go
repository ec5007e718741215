package domain

import (
	"strings"
	"time"
)

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ShortName   string    `json:"shortName"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

type NewRoom struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ShortName   string `json:"shortName"`
}

func (n *NewRoom) Normalize() {
	n.Name = strings.TrimSpace(n.Name)
	n.Description = strings.TrimSpace(n.Description)
	n.ShortName = strings.TrimSpace(n.ShortName)
}

func (n NewRoom) Validate() error {
	if n.Name == "" || n.Description == "" || n.ShortName == "" {
		return invalid("room", "missed fields !")
	}
	return nil
}
