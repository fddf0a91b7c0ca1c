package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/deck"
	"github.com/dgallion1/docdeck/internal/template"
)

func TestTemplateCmd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "brand.pptx")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	d := deck.Deck{Title: deck.DeckTitle, Slides: []deck.SlideSpec{{Layout: deck.LayoutTitle, Title: deck.DeckTitle}}}
	if err := deck.NewWriter(deck.DefaultStyle(), nil).Write(context.Background(), d, f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	saved := filepath.Join(dir, "patterns.json")
	cmd := templateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{src, "--save", saved})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("template command: %v", err)
	}

	var printed template.Profile
	if err := json.Unmarshal(out.Bytes(), &printed); err != nil {
		t.Fatalf("output is not a profile: %v", err)
	}
	if printed.SlideCount != 1 {
		t.Errorf("expected 1 slide, got %d", printed.SlideCount)
	}
	if _, err := template.Load(saved); err != nil {
		t.Errorf("saved profile unreadable: %v", err)
	}
}

func TestTemplateCmd_NotADeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pptx")
	if err := os.WriteFile(path, []byte("plain text"), 0o600); err != nil {
		t.Fatal(err)
	}
	cmd := templateCmd()
	cmd.SetArgs([]string{path})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a non-deck file")
	}
}

func TestNewLogger_Level(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	log := newLogger(config.Config{LogLevel: "debug", LogFormat: "text"})
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug logging enabled")
	}
	log = newLogger(config.Config{LogLevel: "nonsense"})
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected unknown level to fall back to info")
	}
}
