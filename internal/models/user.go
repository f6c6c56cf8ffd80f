package models

import (
	"fmt"
	"strings"
	"time"
)

var _ Model = (*User)(nil)

// User is an account authorized against the catalog API.
type User struct {
	id                string
	sequence          int
	username          string
	discogsID         int64
	accessToken       string
	accessTokenSecret string
	createdAt         time.Time
	updatedAt         time.Time
}

// NewUser creates a [User] with the given sequence and username, timestamped now.
func NewUser(sequence int, username string) *User {
	now := time.Now().UTC()
	return &User{sequence: sequence, username: username, createdAt: now, updatedAt: now}
}

func (u *User) ID() string                { return u.id }
func (u *User) Sequence() int             { return u.sequence }
func (u *User) Username() string          { return u.username }
func (u *User) DiscogsID() int64          { return u.discogsID }
func (u *User) AccessToken() string       { return u.accessToken }
func (u *User) AccessTokenSecret() string { return u.accessTokenSecret }
func (u *User) CreatedAt() time.Time      { return u.createdAt }
func (u *User) UpdatedAt() time.Time      { return u.updatedAt }

func (u *User) SetID(id string)          { u.id = id }
func (u *User) SetSequence(sequence int) { u.sequence = sequence }
func (u *User) SetDiscogsID(id int64)    { u.discogsID = id }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }

// SetTokens stores an OAuth access token pair.
func (u *User) SetTokens(token, secret string) {
	u.accessToken = token
	u.accessTokenSecret = secret
}

// HasTokens reports whether both halves of the access token pair are present.
func (u *User) HasTokens() bool {
	return u.accessToken != "" && u.accessTokenSecret != ""
}

// Validate checks that the user has an id and a username.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.username) == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}
