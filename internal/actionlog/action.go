// Package actionlog records who changed what, for the administrators' audit page.
package actionlog

import "time"

// Actor identifies the user who performed an action.
type Actor struct {
	ID       string `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
}

// Action is one audit entry.
type Action struct {
	ID         string    `json:"id" bson:"_id"`
	Message    string    `json:"message" bson:"message"`
	Actor      Actor     `json:"user" bson:"user"`
	TargetType string    `json:"targetType" bson:"targetType"`
	TargetID   string    `json:"targetId" bson:"targetId"`
	TargetName string    `json:"targetName" bson:"targetName"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
