// Package classify maps file names to display types, icons and filter
// categories, and sniffs content for preview consumers.
package classify

import (
	"strings"
)

// Type is the preview renderer family a file belongs to.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
	TypeAudio Type = "audio"
	TypePDF   Type = "pdf"
	TypeWord  Type = "word"
	TypeExcel Type = "excel"
	TypePPT   Type = "ppt"
	TypeCode  Type = "code"
	TypeText  Type = "text"
	TypeMD    Type = "md"
	TypeZip   Type = "zip"
	TypeOther Type = "other"
)

// Category is a sidebar filter bucket.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryImage   Category = "image"
	CategoryVideo   Category = "video"
	CategoryAudio   Category = "audio"
	CategoryDoc     Category = "doc"
	CategoryArchive Category = "archive"
	CategoryOther   Category = "other"
)

// typeTable is ordered: an extension listed under two types resolves to the first.
var typeTable = []struct {
	typ  Type
	exts []string
}{
	{TypeImage, []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "ico", "avif", "tiff"}},
	{TypeVideo, []string{"mp4", "webm", "ogg", "mov", "avi", "mkv", "flv", "m4v"}},
	{TypeAudio, []string{"mp3", "wav", "ogg", "aac", "flac", "m4a", "opus", "weba"}},
	{TypePDF, []string{"pdf"}},
	{TypeWord, []string{"doc", "docx"}},
	{TypeExcel, []string{"xls", "xlsx", "csv"}},
	{TypePPT, []string{"ppt", "pptx"}},
	{TypeCode, []string{
		"js", "ts", "jsx", "tsx", "py", "java", "c", "cpp", "cs", "go", "rs", "rb",
		"php", "swift", "kt", "dart", "sh", "bash", "zsh", "fish", "ps1",
		"html", "css", "scss", "sass", "less", "xml", "json", "yaml", "yml",
		"toml", "ini", "env", "conf", "nginx", "dockerfile", "makefile",
		"sql", "graphql", "vue", "svelte", "astro", "r", "m", "lua", "pl",
		"ex", "exs", "erl", "clj", "hs", "ml", "scala",
	}},
	{TypeText, []string{
		"txt", "log", "gitignore", "gitattributes", "editorconfig", "license",
		"readme", "authors", "changelog", "contributing", "notice",
	}},
	{TypeMD, []string{"md", "mdx", "markdown"}},
	{TypeZip, []string{"zip", "tar", "gz", "bz2", "xz", "7z", "rar", "tgz"}},
}

var byExt = func() map[string]Type {
	m := make(map[string]Type)
	for _, row := range typeTable {
		for _, e := range row.exts {
			if _, seen := m[e]; !seen {
				m[e] = row.typ
			}
		}
	}
	return m
}()

var iconByExt = map[string]string{
	"jpg": "fa-file-image", "jpeg": "fa-file-image", "png": "fa-file-image",
	"gif": "fa-file-image", "webp": "fa-file-image", "svg": "fa-file-image",
	"bmp": "fa-file-image", "ico": "fa-file-image", "avif": "fa-file-image",

	"mp4": "fa-file-video", "webm": "fa-file-video", "mov": "fa-file-video",
	"avi": "fa-file-video", "mkv": "fa-file-video", "m4v": "fa-file-video",

	"mp3": "fa-file-audio", "wav": "fa-file-audio", "aac": "fa-file-audio",
	"flac": "fa-file-audio", "m4a": "fa-file-audio",

	"pdf": "fa-file-pdf",
	"doc": "fa-file-word", "docx": "fa-file-word",
	"xls": "fa-file-excel", "xlsx": "fa-file-excel", "csv": "fa-file-csv",
	"ppt": "fa-file-powerpoint", "pptx": "fa-file-powerpoint",

	"js": "fa-file-code", "ts": "fa-file-code", "jsx": "fa-file-code", "tsx": "fa-file-code",
	"py": "fa-file-code", "java": "fa-file-code", "c": "fa-file-code", "cpp": "fa-file-code",
	"html": "fa-file-code", "css": "fa-file-code", "json": "fa-file-code",
	"xml": "fa-file-code", "sql": "fa-file-code", "php": "fa-file-code",
	"md": "fa-file-lines", "txt": "fa-file-lines", "log": "fa-file-lines",

	"zip": "fa-file-zipper", "rar": "fa-file-zipper", "tar": "fa-file-zipper",
	"gz": "fa-file-zipper", "7z": "fa-file-zipper", "bz2": "fa-file-zipper",
	"xz": "fa-file-zipper", "tgz": "fa-file-zipper",
}

var colorByExt = map[string]string{
	"pdf": "icon-pdf", "doc": "icon-word", "docx": "icon-word",
	"xls": "icon-excel", "xlsx": "icon-excel", "csv": "icon-excel",
	"ppt": "icon-ppt", "pptx": "icon-ppt",
	"jpg": "icon-image", "jpeg": "icon-image", "png": "icon-image", "gif": "icon-image",
	"webp": "icon-image", "svg": "icon-image", "bmp": "icon-image",
	"mp4": "icon-video", "webm": "icon-video", "mov": "icon-video", "avi": "icon-video",
	"mkv": "icon-video",
	"mp3": "icon-audio", "wav": "icon-audio", "aac": "icon-audio", "flac": "icon-audio",
	"m4a": "icon-audio",
	"zip": "icon-zip", "rar": "icon-zip", "tar": "icon-zip", "gz": "icon-zip",
	"7z": "icon-zip", "bz2": "icon-zip", "tgz": "icon-zip", "xz": "icon-zip",
	"js": "icon-code", "ts": "icon-code", "jsx": "icon-code", "tsx": "icon-code",
	"py": "icon-code", "java": "icon-code", "html": "icon-code", "css": "icon-code",
	"json": "icon-code",
	"md": "icon-text", "txt": "icon-text", "log": "icon-text",
}

// Ext returns the lower-cased text after the last dot, or the whole lower-cased
// name when there is no dot, so "Makefile" and ".gitignore" classify too.
func Ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// TypeOf classifies name by extension.
func TypeOf(name string) Type {
	if t, ok := byExt[Ext(name)]; ok {
		return t
	}
	return TypeOther
}

// IconOf returns the icon class for name.
func IconOf(name string) string {
	if icon, ok := iconByExt[Ext(name)]; ok {
		return icon
	}
	return "fa-file"
}

// ColorOf returns the color class for name.
func ColorOf(name string) string {
	if color, ok := colorByExt[Ext(name)]; ok {
		return color
	}
	return "icon-other"
}

// IsPreviewable reports whether a renderer exists for name.
func IsPreviewable(name string) bool {
	return TypeOf(name) != TypeOther
}

// CategoryOf returns the filter bucket of a file.
func CategoryOf(name string) Category {
	switch TypeOf(name) {
	case TypeImage:
		return CategoryImage
	case TypeVideo:
		return CategoryVideo
	case TypeAudio:
		return CategoryAudio
	case TypePDF, TypeWord, TypeExcel, TypePPT:
		return CategoryDoc
	case TypeZip:
		return CategoryArchive
	default:
		return CategoryOther
	}
}

// ParseCategory validates a filter name. The empty string means all.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryAll, true
	case CategoryAll, CategoryImage, CategoryVideo, CategoryAudio, CategoryDoc, CategoryArchive, CategoryOther:
		return c, true
	}
	return "", false
}

// Info is the full classification of one file.
type Info struct {
	Type        Type     `json:"type"`
	Category    Category `json:"category"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Previewable bool     `json:"previewable"`
}

// Describe classifies name by extension alone.
func Describe(name string) Info {
	return Info{
		Type:        TypeOf(name),
		Category:    CategoryOf(name),
		Icon:        IconOf(name),
		Color:       ColorOf(name),
		Previewable: IsPreviewable(name),
	}
}
