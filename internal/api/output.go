package api

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// outputFormat is set by the root command's --output flag.
var outputFormat = "yaml"

// SetOutputFormat selects the CLI output encoding, "yaml" or "json".
// Unknown values fall back to yaml.
func SetOutputFormat(format string) {
	if format == "json" {
		outputFormat = "json"
	} else {
		outputFormat = "yaml"
	}
}

// Output writes data to stdout in the selected format.
func Output(data any) error {
	return encodeOutput(os.Stdout, data)
}

func encodeOutput(w io.Writer, data any) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}
