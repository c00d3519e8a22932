package openai

import "testing"

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini"); err == nil {
		t.Fatal("missing api key accepted")
	}
	if _, err := NewClient("sk-test", ""); err == nil {
		t.Fatal("missing model accepted")
	}
	if _, err := NewClient("sk-test", "gpt-4o-mini"); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
