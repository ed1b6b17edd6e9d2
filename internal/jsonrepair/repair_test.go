package jsonrepair

import (
	"errors"
	"testing"

	"github.com/starford/modeler/internal/apperr"
)

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRepair_Valid(t *testing.T) {
	obj, err := Repair("```json\n{\"className\": \"User\"}\n```")
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if obj["className"] != "User" {
		t.Errorf("className = %v", obj["className"])
	}
}

func TestRepair_AppendsMissingBrace(t *testing.T) {
	obj, err := Repair(`{"systemName": "Shop", "classes": [{"className": "User"}]`)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if obj["systemName"] != "Shop" {
		t.Errorf("systemName = %v", obj["systemName"])
	}
	classes, ok := obj["classes"].([]any)
	if !ok || len(classes) != 1 {
		t.Errorf("classes = %v", obj["classes"])
	}
}

func TestRepair_AppendsSeveralBraces(t *testing.T) {
	obj, err := Repair(`{"a": {"b": {"c": 1`)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if _, ok := obj["a"].(map[string]any); !ok {
		t.Errorf("a = %v", obj["a"])
	}
}

func TestRepair_KeepsFirstOfConcatenated(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"single newline", "{\"className\": \"User\"}\n{\"className\": \"Order\"}"},
		{"blank line", "{\"className\": \"User\"}\n\n{\"className\": \"Order\"}"},
		{"multiline first", "{\n  \"className\": \"User\",\n  \"attributes\": [{\"name\": \"id\"}]\n}\n{\"className\": \"Order\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Repair(tt.in)
			if err != nil {
				t.Fatalf("Repair: %v", err)
			}
			if obj["className"] != "User" {
				t.Errorf("className = %v, want User", obj["className"])
			}
		})
	}
}

func TestRepair_BracesInsideStrings(t *testing.T) {
	obj, err := Repair(`{"reply": "use {name} here", "n": {"x": 1}`)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if obj["reply"] != "use {name} here" {
		t.Errorf("reply = %v", obj["reply"])
	}
}

func TestRepair_Failures(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", apperr.ErrEmptyResponse},
		{"only fence", "```json\n```", apperr.ErrEmptyResponse},
		{"prose", "Sorry, I cannot help with that.", apperr.ErrMalformedJSON},
		{"array", `[1, 2, 3]`, apperr.ErrMalformedJSON},
		{"extra closing", `{"a": 1}}`, apperr.ErrMalformedJSON},
		{"broken value", `{"a": }`, apperr.ErrMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Repair(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Repair(%q) err = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}
