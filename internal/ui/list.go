package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/crate/internal/models"
)

var _ list.Item = releaseItem{}

// releaseItem wraps [models.ReleaseView] to implement [list.Item].
type releaseItem struct {
	release models.ReleaseView
}

func (i releaseItem) FilterValue() string {
	return i.release.Title + " " + strings.Join(i.release.Artists, " ")
}

func (i releaseItem) Title() string { return i.release.Title }

func (i releaseItem) Description() string {
	desc := "Unknown Artist"
	if len(i.release.Artists) > 0 {
		desc = strings.Join(i.release.Artists, ", ")
	}
	if i.release.Year > 0 {
		desc = fmt.Sprintf("%s • %d", desc, i.release.Year)
	}
	if len(i.release.Labels) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, i.release.Labels[0])
	}
	return desc
}

func releaseItems(releases []models.ReleaseView) []list.Item {
	items := make([]list.Item, len(releases))
	for i, r := range releases {
		items[i] = releaseItem{release: r}
	}
	return items
}
