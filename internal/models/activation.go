package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activation modes.
const (
	ActivationManual = "manual"
	ActivationPool   = "pool"
)

// Activation is an audit record written each time a route becomes active.
type Activation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Mode        string             `bson:"mode" json:"mode"` // "manual" or "pool"
	StartID     int                `bson:"start_id" json:"start_id"`
	StartName   string             `bson:"start_name" json:"start_name"`
	EndID       int                `bson:"end_id" json:"end_id"`
	EndName     string             `bson:"end_name" json:"end_name"`
	Waypoints   []string           `bson:"waypoints" json:"waypoints"`
	PointCount  int                `bson:"point_count" json:"point_count"`
	ActivatedAt time.Time          `bson:"activated_at" json:"activated_at"`
}

// NewActivation builds the history record for a route.
func NewActivation(mode string, route *Route, at time.Time) Activation {
	return Activation{
		Mode:        mode,
		StartID:     route.Start.ID,
		StartName:   route.Start.Name,
		EndID:       route.End.ID,
		EndName:     route.End.Name,
		Waypoints:   route.WaypointNames(),
		PointCount:  len(route.Points),
		ActivatedAt: at,
	}
}
