package stores

import (
	"context"
	"sort"
	"sync"

	"coin-task-desk/models"
)

type memoryState struct {
	profiles map[string]models.UserProfile
	tasks    map[string]models.Task
	ledger   []models.Transaction // newest first
}

func newMemoryState() *memoryState {
	return &memoryState{
		profiles: make(map[string]models.UserProfile),
		tasks:    make(map[string]models.Task),
	}
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		profiles: make(map[string]models.UserProfile, len(s.profiles)),
		tasks:    make(map[string]models.Task, len(s.tasks)),
		ledger:   make([]models.Transaction, len(s.ledger)),
	}
	for k, v := range s.profiles {
		out.profiles[k] = v
	}
	for k, v := range s.tasks {
		out.tasks[k] = v.Clone()
	}
	copy(out.ledger, s.ledger)
	return out
}

type memoryRoot struct {
	mu    sync.Mutex
	state *memoryState
}

// MemoryStore keeps everything in process. Transactions take a global lock and
// work on a copy that replaces the live state only when fn succeeds.
type MemoryStore struct {
	root  *memoryRoot
	state *memoryState // non-nil inside WithinTx
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: &memoryRoot{state: newMemoryState()}}
}

func (s *MemoryStore) do(ctx context.Context, fn func(st *memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state != nil {
		return fn(s.state)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.state)
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.state != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	work := s.root.state.clone()
	if err := fn(&MemoryStore{root: s.root, state: work}); err != nil {
		return err
	}
	s.root.state = work
	return nil
}

func (s *MemoryStore) Profiles() ProfileStore { return memoryProfiles{s} }
func (s *MemoryStore) Tasks() TaskStore       { return memoryTasks{s} }
func (s *MemoryStore) Ledger() LedgerStore    { return memoryLedger{s} }
func (s *MemoryStore) Close() error           { return nil }

type memoryProfiles struct{ s *MemoryStore }

func (m memoryProfiles) GetAll(ctx context.Context) ([]models.UserProfile, error) {
	var out []models.UserProfile
	err := m.s.do(ctx, func(st *memoryState) error {
		out = make([]models.UserProfile, 0, len(st.profiles))
		for _, p := range st.profiles {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (m memoryProfiles) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var out *models.UserProfile
	err := m.s.do(ctx, func(st *memoryState) error {
		p, ok := st.profiles[id]
		if !ok {
			return ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (m memoryProfiles) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var out *models.UserProfile
	err := m.s.do(ctx, func(st *memoryState) error {
		for _, p := range st.profiles {
			if p.Email == email {
				found := p
				out = &found
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (m memoryProfiles) Upsert(ctx context.Context, p *models.UserProfile) error {
	return m.s.do(ctx, func(st *memoryState) error {
		current, exists := st.profiles[p.ID]
		if p.Version == 0 {
			if exists {
				return ErrVersionConflict
			}
			for _, other := range st.profiles {
				if other.Email == p.Email {
					return ErrVersionConflict
				}
			}
		} else if !exists || current.Version != p.Version {
			return ErrVersionConflict
		}
		p.Version++
		st.profiles[p.ID] = *p
		return nil
	})
}

type memoryTasks struct{ s *MemoryStore }

func (m memoryTasks) GetAll(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	err := m.s.do(ctx, func(st *memoryState) error {
		out = make([]models.Task, 0, len(st.tasks))
		for _, t := range st.tasks {
			out = append(out, t.Clone())
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (m memoryTasks) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var out *models.Task
	err := m.s.do(ctx, func(st *memoryState) error {
		t, ok := st.tasks[id]
		if !ok {
			return ErrNotFound
		}
		cp := t.Clone()
		out = &cp
		return nil
	})
	return out, err
}

func (m memoryTasks) Upsert(ctx context.Context, t *models.Task) error {
	return m.s.do(ctx, func(st *memoryState) error {
		return putTask(st, t)
	})
}

func (m memoryTasks) UpsertMany(ctx context.Context, tasks []*models.Task) error {
	return m.s.WithinTx(ctx, func(tx Store) error {
		for _, t := range tasks {
			if err := tx.Tasks().Upsert(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func putTask(st *memoryState, t *models.Task) error {
	current, exists := st.tasks[t.ID]
	if t.Version == 0 {
		if exists {
			return ErrVersionConflict
		}
	} else if !exists || current.Version != t.Version {
		return ErrVersionConflict
	}
	t.Version++
	st.tasks[t.ID] = t.Clone()
	return nil
}

type memoryLedger struct{ s *MemoryStore }

func (m memoryLedger) Append(ctx context.Context, tx *models.Transaction) error {
	return m.s.do(ctx, func(st *memoryState) error {
		for _, existing := range st.ledger {
			if existing.ID == tx.ID {
				return ErrVersionConflict
			}
		}
		st.ledger = append([]models.Transaction{*tx}, st.ledger...)
		return nil
	})
}

func (m memoryLedger) GetAll(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	err := m.s.do(ctx, func(st *memoryState) error {
		out = make([]models.Transaction, len(st.ledger))
		copy(out, st.ledger)
		return nil
	})
	return out, err
}

func (m memoryLedger) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var out *models.Transaction
	err := m.s.do(ctx, func(st *memoryState) error {
		for _, t := range st.ledger {
			if t.ID == id {
				found := t
				out = &found
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (m memoryLedger) GetByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	out := []models.Transaction{}
	err := m.s.do(ctx, func(st *memoryState) error {
		for _, t := range st.ledger {
			if t.UserID == userID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (m memoryLedger) UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) error {
	return m.s.do(ctx, func(st *memoryState) error {
		for i := range st.ledger {
			if st.ledger[i].ID != id {
				continue
			}
			if st.ledger[i].Status != from {
				return ErrStatusMismatch
			}
			st.ledger[i].Status = to
			return nil
		}
		return ErrNotFound
	})
}
