package main

import (
	"encoding/json"
	"strings"
	"testing"

	"skirmish/protocol"
)

func TestDocumentCoversEveryKind(t *testing.T) {
	doc := buildDocument()
	if len(doc.Inbound) != len(protocol.Inbound) || len(doc.Outbound) != len(protocol.Outbound) {
		t.Fatalf("schema kinds: inbound=%d outbound=%d", len(doc.Inbound), len(doc.Outbound))
	}
	for kind, s := range doc.Inbound {
		if s == nil || s.Title != kind {
			t.Fatalf("inbound %s schema = %+v", kind, s)
		}
	}

	data, err := json.Marshal(doc.Inbound[protocol.KindPlayerMove])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"direction"`, `"left_up"`, `"run"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("playerMove schema missing %s: %s", want, data)
		}
	}
}
