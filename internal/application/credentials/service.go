package credentials

import (
	"fmt"
	"sync"

	"github.com/bryanwahyu/synthscreen/internal/domain/credentials"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
)

// Session holds one tenant's screening-request secrets in memory and mirrors
// them to the external store when the persist flag is on. Storage failures
// degrade gracefully: in-memory values stay usable for the current session.
type Session struct {
	mu       sync.Mutex
	store    credentials.Store
	creds    credentials.Credentials
	persist  bool
	restored bool
}

func NewSession(store credentials.Store) *Session {
	return &Session{
		store: store,
		creds: credentials.Credentials{
			Keyservers: credentials.DefaultKeyservers,
			HDB:        credentials.DefaultHDB,
		},
	}
}

// Restore loads previously persisted values on session start. If any of the
// three secrets is found, all five fields are restored and persist is forced
// true: the prior choice to persist is sticky, rediscovered rather than
// re-asked.
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, okT, err := s.store.Get(credentials.KeyToken)
	if err != nil {
		return fmt.Errorf("credential store read: %w", err)
	}
	keypair, okK, err := s.store.Get(credentials.KeyKeypair)
	if err != nil {
		return fmt.Errorf("credential store read: %w", err)
	}
	passphrase, okP, err := s.store.Get(credentials.KeyPassphrase)
	if err != nil {
		return fmt.Errorf("credential store read: %w", err)
	}
	if !okT && !okK && !okP {
		return nil
	}

	if okT {
		s.creds.Token = token
	}
	if okK {
		s.creds.Keypair = keypair
	}
	if okP {
		s.creds.Passphrase = passphrase
	}
	if v, ok, err := s.store.Get(credentials.KeyKeyservers); err == nil && ok {
		s.creds.Keyservers = v
	}
	if v, ok, err := s.store.Get(credentials.KeyHDB); err == nil && ok {
		s.creds.HDB = v
	}
	s.persist = true
	s.restored = true
	return nil
}

// Update replaces the credential fields from a direct user edit. When persist
// is on the new values are written through immediately.
func (s *Session) Update(c credentials.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Keyservers == "" {
		c.Keyservers = credentials.DefaultKeyservers
	}
	if c.HDB == "" {
		c.HDB = credentials.DefaultHDB
	}
	s.creds = c
	if s.persist {
		return s.writeAll()
	}
	return nil
}

// SetPersist toggles durable storage. Turning it on writes all five values;
// turning it off issues an explicit remove of all five keys so no secret
// lingers once the user opts out.
func (s *Session) SetPersist(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persist = on
	if on {
		return s.writeAll()
	}
	s.restored = false
	var firstErr error
	for _, key := range credentials.StorageKeys {
		if err := s.store.Remove(key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("credential store clear: %w", err)
		}
	}
	return firstErr
}

// writeAll mirrors the five fields to storage. Caller holds the lock.
// Best-effort: a partial write surfaces as an error, it is not hidden.
func (s *Session) writeAll() error {
	values := map[string]string{
		credentials.KeyToken:      s.creds.Token,
		credentials.KeyKeypair:    s.creds.Keypair,
		credentials.KeyPassphrase: s.creds.Passphrase,
		credentials.KeyKeyservers: s.creds.Keyservers,
		credentials.KeyHDB:        s.creds.HDB,
	}
	var firstErr error
	for _, key := range credentials.StorageKeys {
		if err := s.store.Set(key, values[key]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("credential store write: %w", err)
		}
	}
	return firstErr
}

// Snapshot returns a copy of the current credential fields.
func (s *Session) Snapshot() credentials.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Status is the presentation state of the credential session. Secrets are
// reported as loaded/not-loaded, never echoed back.
type Status struct {
	TokenLoaded         bool   `json:"token_loaded"`
	TokenChars          int    `json:"token_chars"`
	KeypairLoaded       bool   `json:"keypair_loaded"`
	KeypairChars        int    `json:"keypair_chars"`
	PassphraseSet       bool   `json:"passphrase_set"`
	Keyservers          string `json:"keyservers"`
	HDB                 string `json:"hdb"`
	Persist             bool   `json:"persist"`
	RestoredFromStorage bool   `json:"restored_from_storage"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		TokenLoaded:         s.creds.Token != "",
		TokenChars:          len(s.creds.Token),
		KeypairLoaded:       s.creds.Keypair != "",
		KeypairChars:        len(s.creds.Keypair),
		PassphraseSet:       s.creds.Passphrase != "",
		Keyservers:          s.creds.Keyservers,
		HDB:                 s.creds.HDB,
		Persist:             s.persist,
		RestoredFromStorage: s.restored,
	}
}

// MissingFields lists the display names of required request fields that are
// empty. Keyserver/HDB topology has no non-empty validation here; the engine
// owns that error.
func (s *Session) MissingFields(sequence string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	if sequence == "" {
		missing = append(missing, "DNA Sequence")
	}
	if s.creds.Token == "" {
		missing = append(missing, "Token File")
	}
	if s.creds.Keypair == "" {
		missing = append(missing, "Keypair File")
	}
	if s.creds.Passphrase == "" {
		missing = append(missing, "Passphrase")
	}
	return missing
}

// BuildRequestConfig assembles the engine wire config for one call.
// requestID must be unique per call.
func (s *Session) BuildRequestConfig(requestID string) screening.RequestConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return screening.RequestConfig{
		Region: "All",
		FixedDomains: screening.FixedDomains{
			KeyserverDomains: s.creds.KeyserverDomains(),
			HdbDomains:       []string{s.creds.HDBDomain()},
		},
		IncludeDebugInfo:  true,
		RequestID:         requestID,
		UseHTTP:           false,
		TokenContents:     screening.ByteArray(s.creds.Token),
		KeypairContents:   screening.ByteArray(s.creds.Keypair),
		KeypairPassphrase: s.creds.Passphrase,
	}
}

// Manager hands out one credential session per tenant, namespacing the shared
// store by tenant key prefix.
type Manager struct {
	mu       sync.Mutex
	base     credentials.Store
	sessions map[string]*Session
}

func NewManager(base credentials.Store) *Manager {
	return &Manager{base: base, sessions: make(map[string]*Session)}
}

// Session returns the tenant's credential session, creating and restoring it
// on first use. The restore error is returned alongside a usable session so
// callers can report it as a non-fatal warning.
func (m *Manager) Session(tenant string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[tenant]; ok {
		return s, nil
	}
	s := NewSession(prefixStore{base: m.base, prefix: tenant + ":"})
	err := s.Restore()
	m.sessions[tenant] = s
	return s, err
}

// prefixStore namespaces a shared key-value store per tenant.
type prefixStore struct {
	base   credentials.Store
	prefix string
}

func (p prefixStore) Get(key string) (string, bool, error) { return p.base.Get(p.prefix + key) }
func (p prefixStore) Set(key, value string) error          { return p.base.Set(p.prefix+key, value) }
func (p prefixStore) Remove(key string) error              { return p.base.Remove(p.prefix + key) }
