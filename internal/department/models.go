// Package department manages academic departments and the programs they own.
package department

import (
	"time"

	"github.com/progreview/progreview-api/internal/models"
)

// Department groups programs; Chairs holds user ids.
type Department struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Chairs    []string  `json:"chairs" bson:"chairs"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Populated is a department with chairs resolved to public user views.
type Populated struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Chairs    []models.PublicUser `json:"chairs"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Program belongs to exactly one department.
type Program struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Department string    `json:"department" bson:"department"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
