// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/charmbracelet/log"
)

// OpenStorage opens dir with encryption when passphrase is set. The master
// key is kept in dir/master.key and created on first use. An existing key
// file without a passphrase is refused so data is never mixed.
func OpenStorage(dir, passphrase string, logger *log.Logger) (*storage.Storage, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	keyFile := filepath.Join(dir, "master.key")
	var masterKey crypto.MasterKey
	if passphrase != "" {
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		switch {
		case os.IsNotExist(err):
			logger.Info("initializing new master encryption key", "dir", dir)
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("save master key: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("read master key: %w", err)
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s exists but no passphrase was given", keyFile)
		}
		logger.Debug("storing data unencrypted", "dir", dir)
	}
	s := storage.New(dir, masterKey)
	s.EnableCompression(true)
	return s, nil
}

// RunSummary is the index entry of a stored run.
type RunSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
}

// Store persists run reports.
type Store struct {
	mu sync.Mutex
	s  *storage.Storage
}

func NewStore(s *storage.Storage) *Store {
	return &Store{s: s}
}

var indexFile = filepath.Join("runs", "index.json")

var validID = regexp.MustCompile(`^[0-9a-f-]{36}$`)

func runFile(id string) string { return filepath.Join("runs", id+".json") }

// Save writes r and adds it to the index, replacing an earlier save of the
// same run.
func (st *Store) Save(r RunReport) error {
	if !validID.MatchString(r.ID) {
		return fmt.Errorf("invalid run id %q", r.ID)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.s.SaveDataFile(runFile(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	index, err := st.readIndex()
	if err != nil {
		return err
	}
	sum := RunSummary{ID: r.ID, Name: r.Name, Started: r.Started, Finished: r.Finished, Passed: r.Passed, Failed: r.Failed}
	replaced := false
	for i := range index {
		if index[i].ID == r.ID {
			index[i], replaced = sum, true
		}
	}
	if !replaced {
		index = append(index, sum)
	}
	if err := st.s.SaveDataFile(indexFile, index); err != nil {
		return fmt.Errorf("storage.SaveDataFile (index): %w", err)
	}
	return nil
}

func (st *Store) readIndex() ([]RunSummary, error) {
	var index []RunSummary
	if err := st.s.ReadDataFile(indexFile, &index); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage.ReadDataFile (index): %w", err)
	}
	return index, nil
}

// Load returns a stored run. A missing run yields os.ErrNotExist.
func (st *Store) Load(id string) (RunReport, error) {
	var r RunReport
	if !validID.MatchString(id) {
		return r, fmt.Errorf("invalid run id %q", id)
	}
	if err := st.s.ReadDataFile(runFile(id), &r); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, os.ErrNotExist
		}
		return r, fmt.Errorf("storage.ReadDataFile: %w", err)
	}
	return r, nil
}

// List returns the stored runs, most recent first.
func (st *Store) List() ([]RunSummary, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	index, err := st.readIndex()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(index, func(i, j int) bool { return index[i].Started.After(index[j].Started) })
	return index, nil
}
