package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"skirmish/protocol"
)

// document 以消息类型为键的载荷 schema
type document struct {
	Title    string                        `json:"title"`
	Envelope *jsonschema.Schema            `json:"envelope"`
	Inbound  map[string]*jsonschema.Schema `json:"inbound"`
	Outbound map[string]*jsonschema.Schema `json:"outbound"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema (stdout when empty)")
	flag.Parse()

	data, err := json.MarshalIndent(buildDocument(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := writeFile(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildDocument() document {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return document{
		Title: "skirmish wire protocol",
		Envelope: &jsonschema.Schema{
			Type:        "object",
			Required:    []string{"type", "data"},
			Description: `Every frame is {"type": <kind>, "data": <payload>}`,
		},
		Inbound:  reflectAll(&reflector, protocol.Inbound),
		Outbound: reflectAll(&reflector, protocol.Outbound),
	}
}

func reflectAll(r *jsonschema.Reflector, kinds map[string]any) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(kinds))
	for kind, payload := range kinds {
		s := r.Reflect(payload)
		s.Title = kind
		out[kind] = s
	}
	return out
}

func writeFile(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
