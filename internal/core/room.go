package core

import (
	"time"

	"github.com/consultwire/consult-server/internal/store"
)

// RoomCreation is the payload of a room-creation event. It is delivered to
// both participants when a payment completes, and serialized into the offline
// queue when the specialist has no live connection. Field names follow the
// payment provider's custom data.
type RoomCreation struct {
	RoomID               string `json:"chatroomId"`
	SpecialistID         string `json:"specialist_id"`
	SpecialistFirstName  string `json:"specialist_first_name"`
	SpecialistProfilePic string `json:"specialist_profile_pic"`
	SpecialistPushToken  string `json:"specialist_fcm_token"`
	UserID               string `json:"user_id"`
	UserFirstName        string `json:"user_first_name"`
	UserProfilePic       string `json:"user_profile_pic"`
	UserPushToken        string `json:"user_fcm_token"`
	ConsultationTitle    string `json:"consultation_title"`
	ConsultationDetails  string `json:"consultation_details"`
}

// ToRoom maps the creation payload to a room record with status open.
func (rc *RoomCreation) ToRoom(now time.Time) *store.Room {
	return &store.Room{
		ID:                   rc.RoomID,
		Status:               store.RoomStatusOpen,
		UserID:               rc.UserID,
		UserFirstName:        rc.UserFirstName,
		UserProfilePic:       rc.UserProfilePic,
		UserPushToken:        rc.UserPushToken,
		SpecialistID:         rc.SpecialistID,
		SpecialistFirstName:  rc.SpecialistFirstName,
		SpecialistProfilePic: rc.SpecialistProfilePic,
		SpecialistPushToken:  rc.SpecialistPushToken,
		ConsultationTitle:    rc.ConsultationTitle,
		ConsultationDetails:  rc.ConsultationDetails,
		CreatedAt:            now.UTC(),
	}
}
