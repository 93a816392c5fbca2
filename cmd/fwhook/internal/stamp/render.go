package stamp

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Layouts of the generated date and time strings.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Fragment formats.
const (
	FormatCPP = "cpp"
	FormatGo  = "go"
)

// Record is one build stamp.
type Record struct {
	Number int    `json:"number"`
	Date   string `json:"date"` // YYYY-MM-DD
	Time   string `json:"time"` // HH:MM:SS
}

// NewRecord builds the record for build n at wall-clock time now.
func NewRecord(n int, now time.Time) Record {
	return Record{
		Number: n,
		Date:   now.Format(DateLayout),
		Time:   now.Format(TimeLayout),
	}
}

// RenderOptions selects the fragment language.
type RenderOptions struct {
	Format    string // FormatCPP (default) or FormatGo
	FileName  string // base name echoed in the cpp header comment
	GoPackage string // package clause for FormatGo
}

// Render produces the generated fragment for rec.
func Render(rec Record, opts RenderOptions) ([]byte, error) {
	switch opts.Format {
	case "", FormatCPP:
		return renderCPP(rec, opts.FileName), nil
	case FormatGo:
		return renderGo(rec, opts.GoPackage), nil
	default:
		return nil, fmt.Errorf("unknown fragment format %q", opts.Format)
	}
}

func renderCPP(rec Record, fileName string) []byte {
	if fileName == "" {
		fileName = "build_number.cpp"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n\n", filepath.Base(fileName))
	fmt.Fprintf(&sb, "int buildNumber = %d;\n", rec.Number)
	fmt.Fprintf(&sb, "const char* buildDate = %q;\n", rec.Date)
	fmt.Fprintf(&sb, "const char* buildTime = %q;\n", rec.Time)
	return []byte(sb.String())
}

func renderGo(rec Record, pkg string) []byte {
	if pkg == "" {
		pkg = "version"
	}
	var sb strings.Builder
	sb.WriteString("// Code generated by fwhook stamp. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	sb.WriteString("const (\n")
	fmt.Fprintf(&sb, "\tBuildNumber = %d\n", rec.Number)
	fmt.Fprintf(&sb, "\tBuildDate   = %q\n", rec.Date)
	fmt.Fprintf(&sb, "\tBuildTime   = %q\n", rec.Time)
	sb.WriteString(")\n")
	return []byte(sb.String())
}
