package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q (want json or text)", format)
}

// output renders v as indented JSON, or line-per-item text via the
// provided renderer when --format=text.
func output(v any, text func() []string) error {
	if flagFormat == "text" && text != nil {
		for _, line := range text() {
			fmt.Println(line)
		}
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
