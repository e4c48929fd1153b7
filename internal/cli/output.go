package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

var nowFunc = time.Now

type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatYAML
)

func (o *rootOptions) format() outputFormat {
	switch {
	case o.jsonOut:
		return formatJSON
	case o.yamlOut:
		return formatYAML
	default:
		return formatTable
	}
}

// writeOutput renders v as JSON or YAML, or calls human for table output.
func (o *rootOptions) writeOutput(out io.Writer, v any, human func(io.Writer) error) error {
	switch o.format() {
	case formatJSON:
		return writeJSON(out, v)
	case formatYAML:
		return writeYAML(out, v)
	default:
		return human(out)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON first so field names and raw message content
// match the JSON output.
func writeYAML(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := nowFunc().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
