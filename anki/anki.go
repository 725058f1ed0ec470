// Package anki renders flashcard records as Anki-importable .apkg packages.
//
// An .apkg file is a zip archive holding a sqlite database named
// collection.anki2 plus a media index. The schema and the JSON blobs in the
// col table follow Anki's legacy format (schema version 11), which every
// Anki release still imports.
package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lingomark/lingomark"
)

// fieldSep joins note fields inside the flds column.
const fieldSep = "\x1f"

// Exporter builds .apkg packages from translation records. The note model
// has three fields (Front, Back, Source) and mints a forward and a reverse
// card per record.
type Exporter struct {
	deckName string
	now      func() time.Time
}

// NewExporter returns an Exporter for the named deck.
func NewExporter(deckName string) *Exporter {
	if strings.TrimSpace(deckName) == "" {
		deckName = "LingoMark"
	}
	return &Exporter{deckName: deckName, now: time.Now}
}

// Export writes an .apkg package for the records to w.
func (e *Exporter) Export(w io.Writer, recs []lingomark.Record) error {
	tempDir, err := os.MkdirTemp("", "lingomark_apkg_*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := e.writeCollection(dbPath, recs); err != nil {
		return fmt.Errorf("building collection: %w", err)
	}

	// No media is exported, but the index file is mandatory.
	if err := os.WriteFile(filepath.Join(tempDir, "media"), []byte("{}"), 0o644); err != nil {
		return fmt.Errorf("writing media index: %w", err)
	}

	return zipDir(w, tempDir)
}

// ExportFile writes an .apkg package for the records to the given path.
func (e *Exporter) ExportFile(path string, recs []lingomark.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := e.Export(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *Exporter) writeCollection(dbPath string, recs []lingomark.Record) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return err
	}

	now := e.now()
	deckID := now.UnixMilli()
	modelID := deckID + 1

	if err := e.insertCollection(db, now, deckID, modelID); err != nil {
		return fmt.Errorf("inserting collection row: %w", err)
	}
	if err := insertNotes(db, now, deckID, modelID, recs); err != nil {
		return err
	}
	return nil
}

// createTables creates the legacy Anki schema. The DDL is fixed by the
// format, including the revlog and graves tables an import expects to find.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (e *Exporter) insertCollection(db *sql.DB, now time.Time, deckID, modelID int64) error {
	epoch := now.Unix()

	decks := map[string]any{
		"1": deckJSON(1, "Default", "", epoch),
		fmt.Sprintf("%d", deckID): deckJSON(deckID, e.deckName,
			"Flashcards exported from LingoMark", epoch),
	}
	decksJSON, _ := json.Marshal(decks)

	models := map[string]any{
		fmt.Sprintf("%d", modelID): e.modelJSON(deckID, modelID, epoch),
	}
	modelsJSON, _ := json.Marshal(models)

	conf := map[string]any{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      fmt.Sprintf("%d", modelID),
		"dayLearnFirst": false,
	}
	confJSON, _ := json.Marshal(conf)

	dconf := map[string]any{
		"1": map[string]any{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]any{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]any{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]any{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      epoch,
			"autoplay": true,
			"replayq":  true,
		},
	}
	dconfJSON, _ := json.Marshal(dconf)

	_, err := db.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1,
		epoch,
		epoch*1000,
		epoch*1000,
		11, // schema version
		0,
		0,
		0,
		string(confJSON),
		string(modelsJSON),
		string(decksJSON),
		string(dconfJSON),
		"{}",
	)
	return err
}

func deckJSON(id int64, name, desc string, epoch int64) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             name,
		"mod":              epoch,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (e *Exporter) modelJSON(deckID, modelID, epoch int64) map[string]any {
	field := func(name string, ord int) map[string]any {
		return map[string]any{
			"name":   name,
			"ord":    ord,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		}
	}

	return map[string]any{
		"id":    modelID,
		"name":  "LingoMark (Basic + Reverse)",
		"type":  0,
		"mod":   epoch,
		"usn":   -1,
		"sortf": 0,
		"did":   deckID,
		"req":   [][]any{{0, "all", []int{0}}, {1, "all", []int{1}}},
		"vers":  []int{},
		"tags":  []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds": []map[string]any{
			field("Front", 0),
			field("Back", 1),
			field("Source", 2),
		},
		"tmpls": []map[string]any{
			{
				"name": "Forward",
				"ord":  0,
				"qfmt": `<div class="front">{{Front}}</div>`,
				"afmt": `{{FrontSide}}

<hr id="answer">

<div class="back">{{Back}}</div>
{{#Source}}<div class="source">{{Source}}</div>{{/Source}}`,
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
			{
				"name": "Reverse",
				"ord":  1,
				"qfmt": `<div class="front">{{Back}}</div>`,
				"afmt": `{{FrontSide}}

<hr id="answer">

<div class="back">{{Front}}</div>
{{#Source}}<div class="source">{{Source}}</div>{{/Source}}`,
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
		},
		"css": cardCSS,
	}
}

const cardCSS = `.card {
  font-family: Arial, sans-serif;
  font-size: 22px;
  text-align: center;
  color: #333;
  background-color: white;
}

.front, .back {
  padding: 20px;
}

.front {
  font-size: 28px;
  font-weight: bold;
  color: #2c3e50;
}

.source {
  font-size: 14px;
  color: #7f8c8d;
  margin-top: 24px;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`

func insertNotes(db *sql.DB, now time.Time, deckID, modelID int64, recs []lingomark.Record) error {
	epoch := now.Unix()
	base := now.UnixMilli()

	noteStmt := `INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	cardStmt := `INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i, rec := range recs {
		// Three ids per record: the note plus its two cards.
		noteID := base + int64(i*3)
		forwardID := noteID + 1
		reverseID := noteID + 2

		translation := rec.Translation
		if translation == "" {
			translation = "(untranslated)"
		}

		fields := strings.Join([]string{
			rec.Original,
			translation,
			rec.URL,
		}, fieldSep)

		if _, err := db.Exec(noteStmt,
			noteID,
			noteGUID(rec),
			modelID,
			epoch,
			-1,
			"",
			fields,
			rec.Original, // sort field
			0,
			0,
			"",
		); err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}

		for ord, cardID := range []int64{forwardID, reverseID} {
			if _, err := db.Exec(cardStmt,
				cardID,
				noteID,
				deckID,
				ord,
				epoch,
				-1,
				0,                 // type: new
				0,                 // queue: new
				noteID+int64(ord), // due doubles as position for new cards
				0,
				0,
				0,
				0,
				0,
				0,
				0,
				0,
				"",
			); err != nil {
				return fmt.Errorf("inserting card: %w", err)
			}
		}
	}

	return nil
}

// noteGUID derives a stable id from the note content so re-imports update
// notes instead of duplicating them.
func noteGUID(rec lingomark.Record) string {
	h := lingomark.HashText(rec.Original + fieldSep + rec.TargetLang)
	return "lm_" + h[:16]
}

func zipDir(w io.Writer, dir string) error {
	archive := zip.NewWriter(w)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entry, err := archive.Create(rel)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		archive.Close()
		return fmt.Errorf("zipping package: %w", err)
	}
	return archive.Close()
}
