package model

import "time"

// MinClubCapacity is the smallest max_people a club may declare: the host plus one.
const MinClubCapacity = 2

type Club struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	HostID      int64     `gorm:"not null;index" json:"host_id"`
	Name        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	MaxPeople   int       `gorm:"not null" json:"max_people"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Club) TableName() string { return "clubs" }

// ClubMembership exists exactly while the user is a member of the club.
type ClubMembership struct {
	ClubID    int64     `gorm:"primaryKey;autoIncrement:false" json:"club_id"`
	UserID    int64     `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ClubMembership) TableName() string { return "club_memberships" }

// ClubJoinRequest is a pending application. Approval converts it into a
// ClubMembership, rejection deletes it.
type ClubJoinRequest struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ClubID    int64     `gorm:"not null;uniqueIndex:idx_club_join_requests_club_user" json:"club_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_club_join_requests_club_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ClubJoinRequest) TableName() string { return "club_join_requests" }
