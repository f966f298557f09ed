package model

import "time"

type SafetyStatus string

const (
	SafetyOpen     SafetyStatus = "OPEN"
	SafetyResolved SafetyStatus = "RESOLVED"
)

type SafetyEvent struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	GroupID     string       `bson:"group_id" json:"groupId"`
	TriggeredBy string       `bson:"triggered_by" json:"triggeredBy"`
	Status      SafetyStatus `bson:"status" json:"status"`
	Latitude    *float64     `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64     `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
}
