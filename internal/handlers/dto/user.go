package dto

import (
	"fmt"

	"github.com/thereayou/flasker/internal/models"
)

type UserLinks struct {
	Self      string `json:"self"`
	Followers string `json:"followers"`
	Followed  string `json:"followed"`
}

type UserResponse struct {
	PublicID      string    `json:"public_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	Group         string    `json:"group"`
	Name          string    `json:"name"`
	AboutMe       string    `json:"about_me"`
	Points        *int      `json:"points"`
	FollowerCount int64     `json:"follower_count"`
	FollowedCount int64     `json:"followed_count"`
	Links         UserLinks `json:"_links"`
}

func UserPath(publicID string) string { return "/v1/users/" + publicID }

// NewUserResponse renders user; the email is included only when
// includeEmail is set (the caller looking at their own profile).
func NewUserResponse(u *models.User, followers, followed int64, includeEmail bool) UserResponse {
	resp := UserResponse{
		PublicID:      u.PublicID,
		Username:      u.Username,
		Group:         u.Group,
		Name:          u.Name,
		AboutMe:       u.AboutMe,
		Points:        u.Points,
		FollowerCount: followers,
		FollowedCount: followed,
		Links: UserLinks{
			Self:      UserPath(u.PublicID),
			Followers: fmt.Sprintf("%s/followers", UserPath(u.PublicID)),
			Followed:  fmt.Sprintf("%s/followed", UserPath(u.PublicID)),
		},
	}
	if includeEmail {
		resp.Email = u.Email
	}
	return resp
}
