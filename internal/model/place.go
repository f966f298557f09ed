package model

import "time"

type PlaceSource string

const (
	SourceInternal PlaceSource = "INTERNAL"
	SourceMap      PlaceSource = "MAP"
)

type PlaceCategory string

const (
	CategoryCafe       PlaceCategory = "CAFE"
	CategoryRestaurant PlaceCategory = "RESTAURANT"
	CategoryPark       PlaceCategory = "PARK"
	CategoryLibrary    PlaceCategory = "LIBRARY"
	CategoryOther      PlaceCategory = "OTHER"
)

type Place struct {
	ID              string        `bson:"_id,omitempty" json:"id"`
	Name            string        `bson:"name" json:"name"`
	Category        PlaceCategory `bson:"category" json:"category"`
	Latitude        float64       `bson:"latitude" json:"latitude"`
	Longitude       float64       `bson:"longitude" json:"longitude"`
	ExternalPlaceID string        `bson:"external_place_id,omitempty" json:"externalPlaceId,omitempty"`
	Source          PlaceSource   `bson:"source" json:"source"`
	Tags            []string      `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"createdAt"`
}

// PlaceView is the API shape of a place, with the live group count.
type PlaceView struct {
	Place
	ActiveGroupCount int `json:"activeGroupCount"`
}
