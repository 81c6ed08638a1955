package models

import "time"

type EmailTemplate struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Subject   string     `json:"subject"`
	Content   string     `json:"content"`
	Preview   string     `json:"preview,omitempty"`
	Category  string     `json:"category"`
	AuthorID  string     `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
