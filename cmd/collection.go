package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
)

func filterFrom(cmd *cli.Command) (models.ReleaseFilter, error) {
	f := models.ReleaseFilter{
		Artist: cmd.String("artist"),
		Label:  cmd.String("label"),
		Genre:  cmd.String("genre"),
		Style:  cmd.String("style"),
		Query:  cmd.String("query"),
		Year:   cmd.Int("year"),
		Limit:  cmd.Int("limit"),
		Offset: cmd.Int("offset"),
	}
	if f.Year < 0 || f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("%w: year, limit and offset must not be negative", shared.ErrInvalidFlag)
	}
	return f, nil
}

// openCatalog opens storage for the read commands and resolves the --user flag.
func (r *Runner) openCatalog(ctx context.Context, cmd *cli.Command) (*models.User, error) {
	if err := r.readable(); err != nil {
		return nil, err
	}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	return r.resolveUser(ctx, cmd.String("user"))
}

// CollectionList prints the user's synchronized releases.
func (r *Runner) CollectionList(ctx context.Context, cmd *cli.Command) error {
	user, err := r.openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	filter, err := filterFrom(cmd)
	if err != nil {
		return err
	}

	releases, total, err := r.collection.ListReleases(ctx, user.ID(), filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"releases": releases, "total": total}, cmd.Bool("pretty"))
	}

	r.writePlain("Showing %d of %d releases for %s:\n\n", len(releases), total, user.Username())
	for i, rel := range releases {
		artists := "Unknown Artist"
		if len(rel.Artists) > 0 {
			artists = strings.Join(rel.Artists, ", ")
		}
		r.writePlain("%d. %s - %s", filter.Offset+i+1, artists, rel.Title)
		if rel.Year > 0 {
			r.writePlain(" (%d)", rel.Year)
		}
		r.writePlain("\n")
		if len(rel.Labels) > 0 {
			r.writePlain("   Labels: %s\n", strings.Join(rel.Labels, ", "))
		}
		if len(rel.Genres) > 0 {
			r.writePlain("   Genres: %s\n", strings.Join(rel.Genres, ", "))
		}
	}
	return nil
}

// allReleases pages through every release matching f. A positive f.Limit caps the result.
func (r *Runner) allReleases(ctx context.Context, userID string, f models.ReleaseFilter) ([]models.ReleaseView, error) {
	if f.Limit > 0 {
		releases, _, err := r.collection.ListReleases(ctx, userID, f)
		return releases, err
	}

	var all []models.ReleaseView
	f.Limit = repositories.MaxListLimit
	for {
		page, total, err := r.collection.ListReleases(ctx, userID, f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		f.Offset += len(page)
		if len(page) == 0 || f.Offset >= total {
			return all, nil
		}
	}
}

// CollectionStats prints how much of the catalog is linked to the user's collection.
func (r *Runner) CollectionStats(ctx context.Context, cmd *cli.Command) error {
	user, err := r.openCatalog(ctx, cmd)
	if err != nil {
		return err
	}

	stats, err := r.collection.Stats(ctx, user.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s's collection", user.Username()))
	r.writePlain("Releases: %d\n", stats.Releases)
	r.writePlain("Artists:  %d\n", stats.Artists)
	r.writePlain("Labels:   %d\n", stats.Labels)
	r.writePlain("Genres:   %d\n", stats.Genres)
	r.writePlain("Styles:   %d\n", stats.Styles)
	if !stats.Since.IsZero() {
		r.writePlain("Since:    %s\n", stats.Since.Format("2006-01-02"))
	}
	return nil
}

// CollectionBrowse opens the TUI on the user's releases.
func (r *Runner) CollectionBrowse(ctx context.Context, cmd *cli.Command) error {
	if err := r.logToFile(); err != nil {
		return err
	}
	user, err := r.openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	return r.runTUI(ctx, user, false)
}

// CollectionExport writes the user's releases in the chosen --format.
func (r *Runner) CollectionExport(ctx context.Context, cmd *cli.Command) error {
	user, err := r.openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	filter, err := filterFrom(cmd)
	if err != nil {
		return err
	}

	releases, err := r.allReleases(ctx, user.ID(), filter)
	if err != nil {
		return err
	}
	stats, err := r.collection.Stats(ctx, user.ID())
	if err != nil {
		return err
	}

	export := &formatter.CollectionExport{Username: user.Username(), Stats: stats, Releases: releases}
	output := cmd.String("output")
	format := strings.ToLower(cmd.String("format"))

	r.logger.Info("exporting collection", "user", user.Username(), "format", format, "releases", len(releases))

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Collection exported to %s\n", result.ReleasesFile)
		r.writePlain("✓ Metadata written to %s\n", result.MetadataFile)
	case "markdown", "md":
		var coverURL string
		if cmd.Bool("cover") && len(releases) > 0 {
			coverURL = releases[0].CoverImage
		}
		result, err := formatter.WriteMarkdownExport(export, output, coverURL)
		if err != nil {
			return err
		}
		r.writePlain("✓ Collection exported to %s\n", result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Collection exported to %s\n", path)
	case "json":
		data, err := formatter.ExportToJSON(export)
		if err != nil {
			return err
		}
		if output == "" {
			output = user.Username() + "_releases.json"
		}
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		r.writePlain("✓ Collection exported to %s\n", output)
	default:
		return fmt.Errorf("%w: unknown format %q (csv, markdown, txt, json)", shared.ErrInvalidFlag, format)
	}

	r.writePlain("  Releases: %d\n", len(releases))
	return nil
}
