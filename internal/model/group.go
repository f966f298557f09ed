package model

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

type GroupStatus string

const (
	StatusCreated      GroupStatus = "CREATED"
	StatusJoinable     GroupStatus = "JOINABLE"
	StatusConfirmation GroupStatus = "CONFIRMATION"
	StatusActive       GroupStatus = "ACTIVE"
	StatusExpired      GroupStatus = "EXPIRED"
)

type Group struct {
	ID             string      `bson:"_id,omitempty" json:"id"`
	PlaceID        string      `bson:"place_id" json:"placeId"`
	CreatorID      string      `bson:"creator_id" json:"creatorId"`
	DateTime       time.Time   `bson:"date_time" json:"dateTime"`
	MaxSize        int         `bson:"max_size" json:"maxSize"`
	Visibility     Visibility  `bson:"visibility" json:"visibility"`
	Status         GroupStatus `bson:"status" json:"status"`
	InviteCodeHash string      `bson:"invite_code_hash,omitempty" json:"-"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
}

type GroupMember struct {
	GroupID   string    `bson:"group_id" json:"groupId"`
	UserID    string    `bson:"user_id" json:"userId"`
	Confirmed bool      `bson:"confirmed" json:"confirmed"`
	JoinedAt  time.Time `bson:"joined_at" json:"joinedAt"`
}

// GroupView is the API shape of a group, with the live member count.
type GroupView struct {
	Group
	MemberCount int `json:"memberCount"`
}
