package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/models"
)

// Persisted is the client-local state read at cold start.
type Persisted struct {
	Queue      []models.TrackRef
	Index      int
	Track      models.TrackRef
	Shuffle    bool
	Repeat     models.RepeatMode
	Volume     float64
	HasVolume  bool
	Checkpoint *models.PositionCheckpoint
}

// Store reads and writes player keys independently on a [models.StateStore].
type Store struct {
	kv     models.StateStore
	logger *log.Logger
}

// NewStore wraps kv. A nil kv keeps nothing.
func NewStore(kv models.StateStore, logger *log.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.set(key, string(data))
}

func (s *Store) set(key, value string) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Set(key, value)
}

func (s *Store) get(key string) (string, bool, error) {
	if s.kv == nil {
		return "", false, nil
	}
	return s.kv.Get(key)
}

func (s *Store) getJSON(key string, v any) (bool, error) {
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SaveQueue(tracks []models.TrackRef) error {
	if tracks == nil {
		tracks = []models.TrackRef{}
	}
	return s.setJSON(models.KeyQueue, tracks)
}

func (s *Store) SaveIndex(i int) error {
	return s.set(models.KeyCurrentIndex, strconv.Itoa(i))
}

func (s *Store) SaveTrack(t models.TrackRef) error {
	return s.setJSON(models.KeyCurrentTrack, t)
}

func (s *Store) SaveShuffle(on bool) error {
	return s.set(models.KeyShuffle, strconv.FormatBool(on))
}

func (s *Store) SaveRepeat(m models.RepeatMode) error {
	return s.set(models.KeyRepeat, m.String())
}

func (s *Store) SaveVolume(v float64) error {
	return s.set(models.KeyVolume, strconv.FormatFloat(v, 'f', 2, 64))
}

func (s *Store) SaveCheckpoint(cp models.PositionCheckpoint) error {
	return s.setJSON(models.KeyCheckpoint, cp)
}

func (s *Store) DeleteCheckpoint() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Delete(models.KeyCheckpoint)
}

// Checkpoint returns the saved checkpoint, if any.
func (s *Store) Checkpoint() (*models.PositionCheckpoint, error) {
	var cp models.PositionCheckpoint
	ok, err := s.getJSON(models.KeyCheckpoint, &cp)
	if err != nil || !ok {
		return nil, err
	}
	return &cp, nil
}

// Load reads every key. Unreadable keys are skipped and reported together.
func (s *Store) Load() (Persisted, error) {
	p := Persisted{Volume: 1}
	var errs []error

	if _, err := s.getJSON(models.KeyQueue, &p.Queue); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.getJSON(models.KeyCurrentTrack, &p.Track); err != nil {
		errs = append(errs, err)
	}

	if raw, ok, err := s.get(models.KeyCurrentIndex); err != nil {
		errs = append(errs, err)
	} else if ok {
		if p.Index, err = strconv.Atoi(raw); err != nil {
			errs = append(errs, fmt.Errorf("failed to decode %s: %w", models.KeyCurrentIndex, err))
		}
	}

	if raw, ok, err := s.get(models.KeyShuffle); err != nil {
		errs = append(errs, err)
	} else if ok {
		p.Shuffle, _ = strconv.ParseBool(raw)
	}

	if raw, ok, err := s.get(models.KeyRepeat); err != nil {
		errs = append(errs, err)
	} else if ok {
		if p.Repeat, err = models.ParseRepeatMode(raw); err != nil {
			errs = append(errs, err)
		}
	}

	if raw, ok, err := s.get(models.KeyVolume); err != nil {
		errs = append(errs, err)
	} else if ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			p.Volume, p.HasVolume = v, true
		}
	}

	cp, err := s.Checkpoint()
	if err != nil {
		errs = append(errs, err)
	}
	p.Checkpoint = cp

	return p, errors.Join(errs...)
}

// Clear removes every player key, including the stored session.
func (s *Store) Clear() error {
	if s.kv == nil {
		return nil
	}
	var errs []error
	for _, key := range models.StateKeys {
		if err := s.kv.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// warn logs a failed write; persistence never interrupts playback.
func (s *Store) warn(op string, err error) {
	if err != nil && s.logger != nil {
		s.logger.Warn("failed to persist player state", "op", op, "error", err)
	}
}
