package pages

import "sync"

// SessionMode is the state of an edit session.
type SessionMode uint8

const (
	SessionIdle SessionMode = iota
	SessionAdding
	SessionEditing
)

func (m SessionMode) String() string {
	switch m {
	case SessionAdding:
		return "adding"
	case SessionEditing:
		return "editing"
	default:
		return "idle"
	}
}

// Session gates which item of a collection is being mutated. Each collection owns
// exactly one session, so starting an add or edit always replaces the previous one.
type Session struct {
	store *Collection

	mu     sync.Mutex
	mode   SessionMode
	target Identity
	draft  Fields
}

// BeginAdd starts a new draft seeded with a copy of defaults.
func (s *Session) BeginAdd(defaults Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = SessionAdding
	s.target = Identity{}
	s.draft = defaults.Clone()
}

// BeginEdit copies the target item's fields into the draft. If the item does not
// exist the session is left idle.
func (s *Session) BeginEdit(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	item, ok := s.store.Get(id)
	if !ok {
		return &ItemNotFoundError{Collection: s.store.Name(), ID: id}
	}
	s.mode = SessionEditing
	s.target = id
	s.draft = item.Fields
	return nil
}

// Set writes one draft field.
func (s *Session) Set(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == SessionIdle {
		return errNoActiveSession
	}
	s.draft[field] = value
	return nil
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == SessionIdle {
		return nil
	}
	return s.draft.Clone()
}

// Mode returns the current mode.
func (s *Session) Mode() SessionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Target returns the identity being edited, zero unless editing.
func (s *Session) Target() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Save commits the draft through the collection. On validation failure the mode
// and draft are kept for correction.
func (s *Session) Save() (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		item Item
		err  error
	)
	switch s.mode {
	case SessionAdding:
		item, err = s.store.Add(s.draft)
	case SessionEditing:
		if _, ok := s.store.Get(s.target); !ok {
			missing := s.target
			s.clear()
			return Item{}, &ItemNotFoundError{Collection: s.store.Name(), ID: missing}
		}
		item, err = s.store.Update(s.target, s.draft)
	default:
		return Item{}, errNoActiveSession
	}
	if err != nil {
		return Item{}, err
	}
	s.clear()
	return item, nil
}

// Cancel discards the draft.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Session) forget(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == SessionEditing && s.target == id {
		s.clear()
	}
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Session) clear() {
	s.mode = SessionIdle
	s.target = Identity{}
	s.draft = nil
}
