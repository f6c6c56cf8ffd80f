// package formatter renders synced collection data as CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/models"
)

// CollectionExport is a page of a user's collection prepared for export.
type CollectionExport struct {
	Username string                  `json:"username"`
	Stats    *models.CollectionStats `json:"stats,omitempty"`
	Releases []models.ReleaseView    `json:"releases"`
}

// ExportToCSV converts a CollectionExport to CSV format with columns: ID, Title, Year, Artists, Labels, Genres, Styles, Date Added
func ExportToCSV(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Year", "Artists", "Labels", "Genres", "Styles", "Date Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range export.Releases {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Title,
			yearString(r.Year),
			strings.Join(r.Artists, "; "),
			strings.Join(r.Labels, "; "),
			strings.Join(r.Genres, "; "),
			strings.Join(r.Styles, "; "),
			dateString(r.DateAdded),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a CollectionExport to Markdown format with optional cover image
func ExportToMarkdown(export *CollectionExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s's Collection\n\n", export.Username)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if s := export.Stats; s != nil {
		fmt.Fprintf(&buf, "**Releases**: %d\n", s.Releases)
		fmt.Fprintf(&buf, "**Artists**: %d\n", s.Artists)
		fmt.Fprintf(&buf, "**Labels**: %d\n", s.Labels)
		if !s.Since.IsZero() {
			fmt.Fprintf(&buf, "**Collecting since**: %s\n", dateString(s.Since))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Releases\n\n")
	for i, r := range export.Releases {
		details := []string{}
		if r.Year > 0 {
			details = append(details, strconv.Itoa(r.Year))
		}
		if len(r.Labels) > 0 {
			details = append(details, strings.Join(r.Labels, ", "))
		}
		detailPart := ""
		if len(details) > 0 {
			detailPart = fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		genrePart := ""
		if len(r.Genres) > 0 {
			genrePart = fmt.Sprintf(" [%s]", strings.Join(r.Genres, ", "))
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s%s\n", i+1, artistString(r.Artists), r.Title, detailPart, genrePart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CollectionExport to plain text format
func ExportToText(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Collection: %s\n", export.Username)
	if export.Stats != nil {
		fmt.Fprintf(&buf, "Total releases: %d\n", export.Stats.Releases)
	}
	fmt.Fprintf(&buf, "Releases: %d\n\n", len(export.Releases))

	for i, r := range export.Releases {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, artistString(r.Artists), r.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export as indented JSON.
func ExportToJSON(export *CollectionExport) ([]byte, error) {
	return json.MarshalIndent(export, "", "  ")
}

// ToMetadataJSON generates a JSON representation of collection stats (without releases)
func ToMetadataJSON(username string, stats *models.CollectionStats) ([]byte, error) {
	return json.MarshalIndent(struct {
		Username string                  `json:"username"`
		Stats    *models.CollectionStats `json:"stats"`
	}{username, stats}, "", "  ")
}

// WriteSummary writes a human-readable sync summary.
func WriteSummary(w io.Writer, s *models.Summary) error {
	var buf bytes.Buffer

	created := "existing"
	if s.Collection.Created {
		created = "new"
	}
	fmt.Fprintf(&buf, "Synced collection for %s (%s collection)\n\n", s.User.Username, created)

	rows := []struct {
		label string
		n     int
	}{
		{"Releases", s.Synced.Releases},
		{"Artists", s.Synced.Artists},
		{"Labels", s.Synced.Labels},
		{"Genres", s.Synced.Genres},
		{"Styles", s.Synced.Styles},
		{"Release ↔ Collection", s.Synced.ReleaseCollection},
		{"Release ↔ Artist", s.Synced.ReleaseArtists},
		{"Release ↔ Label", s.Synced.ReleaseLabels},
		{"Release ↔ Genre", s.Synced.ReleaseGenres},
		{"Release ↔ Style", s.Synced.ReleaseStyles},
	}
	for _, row := range rows {
		fmt.Fprintf(&buf, "  %-22s %6d new\n", row.label, row.n)
	}
	fmt.Fprintf(&buf, "\n  %-22s %6d new\n", "Total", s.Synced.Total())

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteVideos writes one numbered line per video.
func WriteVideos(w io.Writer, videos []discogs.Video) error {
	var buf bytes.Buffer
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. %s [%s]\n   %s\n", i+1, v.Title, durationString(v.Duration), v.URI)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ReleasesFile string
	MetadataFile string
}

// WriteCSVExport exports a collection to CSV format with accompanying metadata JSON file.
//
// Defaults to the username as the base filename & creates {base}_releases.csv and {base}_metadata.json
func WriteCSVExport(export *CollectionExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Username
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	releasesFile := baseFilepath + "_releases.csv"
	if err := os.WriteFile(releasesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Username, export.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ReleasesFile: releasesFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a collection to Markdown format in a dedicated directory.
//
// Directory name defaults to the username.
// The imageURL parameter is optional - if provided, attempts to download it as the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *CollectionExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Username
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a collection to plain text format.
//
// Defaults to {username}_releases.txt as the filename.
func WriteTextExport(export *CollectionExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_releases.txt", export.Username)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

func artistString(artists []string) string {
	if len(artists) == 0 {
		return "Unknown Artist"
	}
	return strings.Join(artists, ", ")
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// durationString formats seconds as m:ss.
func durationString(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
