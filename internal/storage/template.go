package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

// DefaultPathTemplate places files as Artist/Album/DD-TT Title.
const DefaultPathTemplate = "{{.AlbumArtist}}/{{.Album}}/{{.Disc}}-{{.Track}} {{.Title}}"

// PathTemplateData holds the data for path template execution
type PathTemplateData struct {
	AlbumArtist string
	Artist      string
	Album       string
	Disc        string
	Track       string
	Title       string
	Year        int
}

// BuildPath executes the template and returns the relative path (without extension)
func BuildPath(templateStr string, data *PathTemplateData) (string, error) {
	tmpl, err := template.New("path").Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// NewPathTemplateData sanitizes tag values for use as path segments.
// Missing artist or album values fall back to "Unknown".
func NewPathTemplateData(albumArtist, artist, album string, discNum, trackNum int, title string, year int) *PathTemplateData {
	if albumArtist == "" {
		albumArtist = artist
	}
	return &PathTemplateData{
		AlbumArtist: orUnknown(Sanitize(albumArtist)),
		Artist:      orUnknown(Sanitize(artist)),
		Album:       orUnknown(Sanitize(album)),
		Disc:        fmt.Sprintf("%02d", max(discNum, 1)),
		Track:       fmt.Sprintf("%02d", trackNum),
		Title:       orUnknown(Sanitize(title)),
		Year:        year,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// BuildFullPath constructs the destination path below root. Paths that would
// escape root are rejected.
func BuildFullPath(root, templateStr string, data *PathTemplateData, ext string) (string, error) {
	relPath, err := BuildPath(templateStr, data)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Clean(filepath.Join(root, relPath+ParseExtension(ext)))
	rel, err := filepath.Rel(filepath.Clean(root), fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes %s", relPath, root)
	}

	return fullPath, nil
}

// ParseExtension parses an extension string, ensuring it starts with a dot
func ParseExtension(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}
