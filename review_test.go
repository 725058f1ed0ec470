package lingomark

import (
	"fmt"
	"testing"
)

func reviewDeck(n int) []Record {
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{
			ID:          fmt.Sprintf("rec-%d", i),
			Original:    fmt.Sprintf("mot-%d", i),
			Translation: fmt.Sprintf("word-%d", i),
			Date:        day(i%27 + 1),
		}
	}
	return recs
}

func TestReview_SeedReproducesOrder(t *testing.T) {
	recs := reviewDeck(10)

	first := NewReview(recs, 42)
	second := NewReview(recs, 42)

	if first.Seed() != 42 {
		t.Errorf("Expected seed 42, got %d", first.Seed())
	}

	a, b := first.Deck(), second.Deck()
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("Decks diverge at %d: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
}

func TestReview_DifferentSeedsDiffer(t *testing.T) {
	recs := reviewDeck(10)

	a := NewReview(recs, 1).Deck()
	b := NewReview(recs, 2).Deck()

	same := true
	for i := range a {
		if a[i].ID != b[i].ID {
			same = false
			break
		}
	}
	if same {
		t.Error("Different seeds produced identical order")
	}
}

func TestReview_ZeroSeedIsAssigned(t *testing.T) {
	review := NewReview(reviewDeck(3), 0)
	if review.Seed() <= 0 {
		t.Errorf("Expected an assigned seed, got %d", review.Seed())
	}
}

func TestReview_ShuffleKeepsAllCards(t *testing.T) {
	recs := reviewDeck(8)
	review := NewReview(recs, 7)

	if review.Len() != 8 {
		t.Fatalf("Expected 8 cards, got %d", review.Len())
	}

	seen := make(map[string]bool)
	for _, rec := range review.Deck() {
		seen[rec.ID] = true
	}
	for _, rec := range recs {
		if !seen[rec.ID] {
			t.Errorf("Card %q missing from shuffled deck", rec.ID)
		}
	}
}

func TestReview_Navigation(t *testing.T) {
	review := NewReview(reviewDeck(3), 5)

	if review.Position() != 0 {
		t.Errorf("Expected starting position 0, got %d", review.Position())
	}

	first, ok := review.Card()
	if !ok {
		t.Fatal("Expected a current card")
	}

	review.Flip()
	if !review.Flipped() {
		t.Error("Card should be flipped")
	}

	// Moving resets the flip
	review.Next()
	if review.Flipped() {
		t.Error("Next should show the new card's front")
	}
	if review.Position() != 1 {
		t.Errorf("Expected position 1, got %d", review.Position())
	}

	review.Next()
	review.Next() // wraps
	if review.Position() != 0 {
		t.Errorf("Expected wrap to position 0, got %d", review.Position())
	}

	back, _ := review.Card()
	if back.ID != first.ID {
		t.Errorf("Wrap should return to the first card, got %q", back.ID)
	}

	review.Prev() // wraps backward
	if review.Position() != 2 {
		t.Errorf("Expected backward wrap to position 2, got %d", review.Position())
	}
}

func TestReview_Empty(t *testing.T) {
	review := NewReview(nil, 1)

	if review.Len() != 0 {
		t.Errorf("Expected empty deck, got %d cards", review.Len())
	}
	if _, ok := review.Card(); ok {
		t.Error("Empty review should have no current card")
	}

	// Navigation on an empty deck is a no-op
	review.Next()
	review.Prev()
	review.Flip()
	if review.Position() != 0 || review.Flipped() {
		t.Error("Empty review state should not change")
	}
}

func TestReview_DeckIsACopy(t *testing.T) {
	review := NewReview(reviewDeck(3), 9)

	deck := review.Deck()
	want := deck[0].ID
	deck[0].ID = "mutated"

	fresh := review.Deck()
	if fresh[0].ID != want {
		t.Error("Mutating the returned deck should not affect the review")
	}
}
