package analyzer

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"nfe-analyzer-service/internal/domain"
)

// Session carrega todo o estado de uma interação de análise: as três bases de
// entrada, os resultados da última reconciliação e os diagnósticos
// acumulados. Criada no início da sessão, descartada no fim; nenhum estado é
// compartilhado entre sessões.
type Session struct {
	ID string

	NCM     NCMTable
	Buckets map[domain.BucketKind]map[string]domain.LedgerRecord
	Docs    map[string][]byte

	Items       []domain.ReconciledLineItem
	Unmatched   []domain.UnmatchedEntry
	Diagnostics []domain.Diagnostic

	mu sync.Mutex
}

// NewSession creates an empty session with all stores initialized.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		NCM:     make(NCMTable),
		Buckets: newBuckets(),
		Docs:    make(map[string][]byte),
	}
}

func newBuckets() map[domain.BucketKind]map[string]domain.LedgerRecord {
	return map[domain.BucketKind]map[string]domain.LedgerRecord{
		domain.BucketAuthorizedOutbound: {},
		domain.BucketCancelled:          {},
		domain.BucketDenied:             {},
		domain.BucketOtherInbound:       {},
	}
}

// Lock serializes the loaders and the reconciliation pass for one session.
// The model is synchronous per user action; the lock only protects against a
// client firing overlapping requests for the same session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) addDiagnostic(stage string, row int, reason string) {
	s.Diagnostics = append(s.Diagnostics, domain.Diagnostic{Stage: stage, Row: row, Reason: reason})
}

// SessionStore guarda as sessões ativas em memória, indexadas pelo ID vindo
// do cliente. Sem persistência: reiniciar o processo descarta tudo.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it if needed. An empty id
// gets a fresh random one.
func (st *SessionStore) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id == "" {
		id = newSessionID()
	}
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := NewSession(id)
	st.sessions[id] = s
	return s
}

// Delete discards a session and all of its state.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "sessao-anonima"
	}
	return hex.EncodeToString(b)
}
