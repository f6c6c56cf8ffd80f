package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

type userRow struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	DiscogsID  int64     `json:"discogs_id"`
	Authorized bool      `json:"authorized"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UsersList prints every stored user. Tokens are never printed.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	users, err := r.users.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{
			ID:         u.ID(),
			Username:   u.Username(),
			DiscogsID:  u.DiscogsID(),
			Authorized: u.HasTokens(),
			CreatedAt:  u.CreatedAt(),
			UpdatedAt:  u.UpdatedAt(),
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d users:\n\n", len(rows))
	for i, row := range rows {
		r.writePlain("%d. %s\n", i+1, row.Username)
		r.writePlain("   ID: %s\n", row.ID)
		if row.DiscogsID != 0 {
			r.writePlain("   Discogs ID: %d\n", row.DiscogsID)
		}
		if row.Authorized {
			r.writePlain("   Authorized: yes\n")
		} else {
			r.writePlain("   Authorized: no\n")
		}
		r.writePlain("\n")
	}
	return nil
}
