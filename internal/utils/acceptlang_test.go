package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("en-US", "es-CO,es;q=0.9,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "es-CO,es;q=0.9,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "es;q=0.5,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_ZeroQIsRejected(t *testing.T) {
	got := DetermineLocale("", "en;q=0,fr", SupportedLocales, DefaultLocale)
	if got != "es" {
		t.Fatalf("want es fallback, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,de;q=0.9", SupportedLocales, DefaultLocale)
	if got != "es" {
		t.Fatalf("want es fallback, got %s", got)
	}
}
