// Package lingomark turns highlighted text into translated flashcards.
//
// The Relay resolves each highlight through an explicit cache and a
// pluggable translation provider, then persists the result as a flashcard
// record in either a local or a hosted store. Saved records can be grouped
// by site, reviewed in random order, and exported or imported as JSON.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/lingomark/lingomark"
//	    "github.com/lingomark/lingomark/cache"
//	    "github.com/lingomark/lingomark/provider"
//	    "github.com/lingomark/lingomark/store"
//	)
//
//	func main() {
//	    p := provider.NewDeepLProvider(provider.DeepLConfig{
//	        APIKey: os.Getenv("DEEPL_API_KEY"),
//	    })
//
//	    cards, err := store.Open("lingomark.db")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer cards.Close()
//
//	    relay := lingomark.NewRelay("en", p,
//	        lingomark.WithCache(cache.NewInMemoryCache(0)),
//	        lingomark.WithStore(cards),
//	    )
//
//	    rec, err := relay.Translate(context.Background(), lingomark.Request{
//	        Text:    "bonjour",
//	        PageURL: "https://example.fr/article",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(rec.Translation)
//	}
package lingomark
