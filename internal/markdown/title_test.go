package markdown

import "testing"

// TestTitle_FirstH1 tests that the first top-level heading is returned.
func TestTitle_FirstH1(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.
`
	if got := Title([]byte(input)); got != "Getting Started" {
		t.Errorf("expected 'Getting Started', got %q", got)
	}
}

// TestTitle_NoHeaders tests documents without any heading.
func TestTitle_NoHeaders(t *testing.T) {
	input := "Just a paragraph.\n\nAnother paragraph.\n"
	if got := Title([]byte(input)); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

// TestTitle_StartsAtH2 tests that a document without H1 uses its first H2.
func TestTitle_StartsAtH2(t *testing.T) {
	input := `Some preamble.

## Usage

Run it.
`
	if got := Title([]byte(input)); got != "Usage" {
		t.Errorf("expected 'Usage', got %q", got)
	}
}

// TestHeadingsOrder tests that nested headings are flattened in document order.
func TestHeadingsOrder(t *testing.T) {
	input := `# API

## Ingest

### Request

## Chat
`
	got := headings([]byte(input))
	want := []string{"API", "Ingest", "Request", "Chat"}
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
