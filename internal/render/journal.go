package render

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vogtb/cellcore"
)

var displayBucket = []byte("display")

// Journal persists the last rendered text of every position in a bbolt
// file. clearing a cell deletes its key. write failures are logged and do
// not interrupt the sheet.
type Journal struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// OpenJournal opens (or creates) the journal at path
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(displayBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal %s: %w", path, err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Render(pos cellcore.Position, text string) {
	key := []byte(pos.Key())
	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(displayBucket)
		if text == "" {
			return bucket.Delete(key)
		}
		return bucket.Put(key, []byte(text))
	})
	if err != nil {
		j.logger.Error("journal write failed", "cell", pos.String(), "error", err)
	}
}

// Load returns the journaled text of every position
func (j *Journal) Load() (map[cellcore.Position]string, error) {
	result := make(map[cellcore.Position]string)
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(displayBucket).ForEach(func(k, v []byte) error {
			pos, err := parseKey(string(k))
			if err != nil {
				return err
			}
			result[pos] = string(v)
			return nil
		})
	})
	return result, err
}

// Replay renders every journaled cell into r, e.g. to repaint a Grid
func (j *Journal) Replay(r cellcore.Renderer) error {
	cells, err := j.Load()
	if err != nil {
		return err
	}
	for pos, text := range cells {
		r.Render(pos, text)
	}
	return nil
}

// Reset drops every journaled cell
func (j *Journal) Reset() error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(displayBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(displayBucket)
		return err
	})
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// parseKey inverts cellcore.Position.Key
func parseKey(key string) (cellcore.Position, error) {
	rowText, colText, ok := strings.Cut(key, ",")
	if !ok {
		return cellcore.Position{}, fmt.Errorf("journal key %q: %w", key, cellcore.ErrInvalidAddress)
	}
	row, err := strconv.Atoi(rowText)
	if err != nil {
		return cellcore.Position{}, fmt.Errorf("journal key %q: %w", key, cellcore.ErrInvalidAddress)
	}
	col, err := strconv.Atoi(colText)
	if err != nil {
		return cellcore.Position{}, fmt.Errorf("journal key %q: %w", key, cellcore.ErrInvalidAddress)
	}
	return cellcore.Position{Row: row, Col: col}, nil
}
