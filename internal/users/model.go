package users

import "time"

// User is a signed-in account. ID carries the identity provider prefix
// ("google:<sub>") so it lines up with the JWT sub claim and with
// documents.user_id. Guests never get a row here.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	PictureURL string    `json:"pictureUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
