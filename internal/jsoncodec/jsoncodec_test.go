package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	type payload struct {
		Tipo string `json:"tipo"`
		ID   int    `json:"id"`
	}

	data, err := Marshal(payload{Tipo: "nuevoPedido", ID: 42})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"tipo":"nuevoPedido","id":42}` {
		t.Errorf("Marshal = %s", data)
	}

	var got payload
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Tipo != "nuevoPedido" || got.ID != 42 {
		t.Errorf("Unmarshal = %+v", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"a":1}`)) {
		t.Error("expected valid JSON")
	}
	if Valid([]byte(`{"a":`)) {
		t.Error("expected invalid JSON")
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, map[string]int{"n": 1}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != `{"n":1}` {
		t.Errorf("Encode = %q", buf.String())
	}
}
