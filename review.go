package lingomark

import (
	"math/rand"
	"time"
)

// Review is review-mode state: a randomized traversal of a set of
// flashcards with forward/back/flip navigation. The front of a card is the
// original text, the back its translation.
type Review struct {
	deck    []Record
	seed    int64
	pos     int
	flipped bool
}

// NewReview shuffles the records into a review deck. A positive seed makes
// the order reproducible; otherwise the shuffle is time-seeded.
func NewReview(recs []Record, seed int64) *Review {
	deck := make([]Record, len(recs))
	copy(deck, recs)

	if seed <= 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	return &Review{deck: deck, seed: seed}
}

// Seed returns the seed that produced the deck order. Requesting a new
// review with the same seed over the same records reproduces the order.
func (r *Review) Seed() int64 {
	return r.seed
}

// Len returns the number of cards in the deck.
func (r *Review) Len() int {
	return len(r.deck)
}

// Position returns the zero-based index of the current card.
func (r *Review) Position() int {
	return r.pos
}

// Card returns the current card. ok is false when the deck is empty.
func (r *Review) Card() (rec Record, ok bool) {
	if len(r.deck) == 0 {
		return Record{}, false
	}
	return r.deck[r.pos], true
}

// Flipped reports whether the current card shows its back.
func (r *Review) Flipped() bool {
	return r.flipped
}

// Flip toggles the current card between front and back.
func (r *Review) Flip() {
	if len(r.deck) == 0 {
		return
	}
	r.flipped = !r.flipped
}

// Next advances to the following card, wrapping at the end. The new card
// shows its front.
func (r *Review) Next() {
	if len(r.deck) == 0 {
		return
	}
	r.pos = (r.pos + 1) % len(r.deck)
	r.flipped = false
}

// Prev steps back to the previous card, wrapping at the start. The new card
// shows its front.
func (r *Review) Prev() {
	if len(r.deck) == 0 {
		return
	}
	r.pos = (r.pos - 1 + len(r.deck)) % len(r.deck)
	r.flipped = false
}

// Deck returns a copy of the shuffled order.
func (r *Review) Deck() []Record {
	out := make([]Record, len(r.deck))
	copy(out, r.deck)
	return out
}
