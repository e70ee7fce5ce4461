// Package history persists generated migration plans in a local bolt
// database so that runs can be compared and replayed later.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/vk/lakeshift/internal/sequencer"
)

// ErrPlanNotFound is returned by Get for an unknown plan id.
var ErrPlanNotFound = errors.New("plan not found")

var plansBucket = []byte("plans")

// Plan is one saved planning run.
type Plan struct {
	ID        string                    `json:"id"`
	Root      string                    `json:"root"`
	CreatedAt time.Time                 `json:"created_at"`
	Steps     []sequencer.MigrationStep `json:"steps"`
}

// Summary is the listing view of a saved plan.
type Summary struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"created_at"`
	StepCount int       `json:"step_count"`
}

// Store is a bolt-backed plan archive. One store owns its database file;
// Close releases the file lock.
type Store struct {
	db *bolt.DB
}

// Open opens (possibly creating) the plan store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening plan store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(plansBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating plans bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a plan and returns its assigned id. The plan's ID and
// CreatedAt fields are filled in; keys sort chronologically because ids are
// zero-padded sequence numbers.
func (s *Store) Save(plan Plan) (string, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(plansBucket)
		sequence, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		plan.ID = fmt.Sprintf("%08d", sequence)
		if plan.CreatedAt.IsZero() {
			plan.CreatedAt = time.Now().UTC()
		}
		encoded, err := json.Marshal(plan)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(plan.ID), encoded)
	})
	if err != nil {
		return "", fmt.Errorf("saving plan: %w", err)
	}
	return plan.ID, nil
}

// Get returns the plan with the given id.
func (s *Store) Get(id string) (Plan, error) {
	var plan Plan
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(plansBucket).Get([]byte(id))
		if raw == nil {
			return ErrPlanNotFound
		}
		return json.Unmarshal(raw, &plan)
	})
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// List returns summaries of every saved plan, oldest first.
func (s *Store) List() ([]Summary, error) {
	var summaries []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(plansBucket).ForEach(func(_, raw []byte) error {
			var plan Plan
			if err := json.Unmarshal(raw, &plan); err != nil {
				return err
			}
			summaries = append(summaries, Summary{
				ID:        plan.ID,
				Root:      plan.Root,
				CreatedAt: plan.CreatedAt,
				StepCount: len(plan.Steps),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	return summaries, nil
}
