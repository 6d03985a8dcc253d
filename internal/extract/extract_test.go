package extract

import (
	"testing"

	"github.com/avendel/chronovox/internal/fault"
)

func TestObjectFencedPayload(t *testing.T) {
	text := "Here is the scene you asked for:\n```json\n{\"context\": \"Timbuktu, 1324\", \"characters\": []}\n```\nLet me know if you need changes."
	obj, err := Object(text)
	if err != nil {
		t.Fatalf("Object returned error: %v", err)
	}
	if obj["context"] != "Timbuktu, 1324" {
		t.Fatalf("unexpected context: %v", obj["context"])
	}
}

func TestObjectBarePayload(t *testing.T) {
	obj, err := Object(`{"a": 1, "b": {"c": "nested }{ braces"}}`)
	if err != nil {
		t.Fatalf("Object returned error: %v", err)
	}
	if obj["a"] != float64(1) {
		t.Fatalf("unexpected a: %v", obj["a"])
	}
}

func TestObjectStripsControlCharacters(t *testing.T) {
	text := "{\"context\": \"a\x00b\", \"ok\": true}"
	obj, err := Object(text)
	if err != nil {
		t.Fatalf("Object returned error: %v", err)
	}
	if obj["context"] != "ab" {
		t.Fatalf("expected control byte removed, got %q", obj["context"])
	}
}

func TestObjectNoBraces(t *testing.T) {
	_, err := Object("I could not produce a scene, sorry.")
	if err == nil {
		t.Fatal("expected error for text without braces")
	}
	if fault.KindOf(err) != fault.MalformedResponse {
		t.Fatalf("expected malformed_response, got %v", fault.KindOf(err))
	}
}

func TestObjectUnrepairable(t *testing.T) {
	_, err := Object(`{"trailing": "comma",}`)
	if err == nil {
		t.Fatal("expected error for trailing comma")
	}
	if fault.KindOf(err) != fault.MalformedResponse {
		t.Fatalf("expected malformed_response, got %v", fault.KindOf(err))
	}
}

func TestObjectReversedBraces(t *testing.T) {
	_, err := Object("} nothing useful {")
	if err == nil {
		t.Fatal("expected error for reversed braces")
	}
	if fault.KindOf(err) != fault.MalformedResponse {
		t.Fatalf("expected malformed_response, got %v", fault.KindOf(err))
	}
}
