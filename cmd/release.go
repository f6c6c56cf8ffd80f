package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/shared"
)

// ReleaseVideos prints a release's videos.
//
// The stored token of --user is used when one resolves; release lookups work unauthenticated otherwise.
func (r *Runner) ReleaseVideos(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be a positive release id", shared.ErrInvalidFlag)
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	var creds *discogs.Credentials
	user, err := r.resolveUser(ctx, cmd.String("user"))
	switch {
	case err == nil && user.HasTokens():
		creds = &discogs.Credentials{Token: user.AccessToken(), TokenSecret: user.AccessTokenSecret()}
	case err != nil && !errors.Is(err, shared.ErrUserNotFound) && !errors.Is(err, shared.ErrMissingArgument):
		return err
	}

	r.logger.Info("fetching release videos", "release", id, "authenticated", creds != nil)

	videos, err := r.client.ReleaseVideos(ctx, id, creds)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}
	if len(videos) == 0 {
		return r.writePlain("Release %d has no videos\n", id)
	}
	return formatter.WriteVideos(r.output, videos)
}
