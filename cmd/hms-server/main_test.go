package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/careops/hms/internal/config"
	"github.com/careops/hms/internal/platform/recommend"
)

func TestNewDocStoreSelection(t *testing.T) {
	ctx := context.Background()

	store, err := newDocStore(ctx, &config.Config{StorageBackend: "disabled"})
	if err != nil {
		t.Fatalf("disabled backend failed: %v", err)
	}
	if store.Enabled() {
		t.Error("disabled backend reports enabled")
	}

	store, err = newDocStore(ctx, &config.Config{StorageBackend: "local", StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("local backend failed: %v", err)
	}
	if !store.Enabled() {
		t.Error("local backend reports disabled")
	}

	if _, err := newDocStore(ctx, &config.Config{StorageBackend: "tape"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewRecommenderSelection(t *testing.T) {
	logger := zerolog.Nop()

	r := newRecommender(&config.Config{RecommenderEnabled: false}, logger)
	if _, err := r.Recommend(context.Background(), recommend.Input{Symptoms: "headache"}); err == nil {
		t.Error("disabled recommender should error")
	}

	r = newRecommender(&config.Config{RecommenderEnabled: true}, logger)
	res, err := r.Recommend(context.Background(), recommend.Input{Symptoms: "headache"})
	if err != nil {
		t.Fatalf("rule classifier failed: %v", err)
	}
	if len(res.Categories) == 0 {
		t.Error("rule classifier returned no categories")
	}
}
