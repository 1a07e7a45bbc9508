package store

import (
	"context"
	"sync"
	"time"

	"go-contractpack/internal/model"
)

// Memory is an in-memory Store used by the test suite and for running the
// service without PostgreSQL. All methods are safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	packages  map[string]*model.PackageDefinition
	mappings  map[string]string
	documents map[string]*model.DocumentTemplate
	jobs      map[string]*model.AssembledPackage
	jobInputs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		packages:  make(map[string]*model.PackageDefinition),
		mappings:  make(map[string]string),
		documents: make(map[string]*model.DocumentTemplate),
		jobs:      make(map[string]*model.AssembledPackage),
		jobInputs: make(map[string][]byte),
	}
}

func (m *Memory) CreatePackage(_ context.Context, p *model.PackageDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.IsDefault {
		m.clearDefaultLocked()
	}
	cp := *p
	m.packages[p.ID] = &cp
	return nil
}

func (m *Memory) UpdatePackage(_ context.Context, p *model.PackageDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[p.ID]; !ok {
		return model.ErrNotFound
	}
	if p.IsDefault {
		m.clearDefaultLocked()
	}
	cp := *p
	m.packages[p.ID] = &cp
	return nil
}

// clearDefaultLocked unsets is_default everywhere; at most one package may
// carry the flag.
func (m *Memory) clearDefaultLocked() {
	for _, q := range m.packages {
		q.IsDefault = false
	}
}

func (m *Memory) GetPackage(_ context.Context, id string) (*model.PackageDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPackages(_ context.Context) ([]model.PackageDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PackageDefinition, 0, len(m.packages))
	for _, p := range m.packages {
		out = append(out, *p)
	}
	return out, nil
}

func (m *Memory) DefaultPackage(_ context.Context) (*model.PackageDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.packages {
		if p.IsDefault {
			cp := *p
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *Memory) SetCountersignImage(_ context.Context, id string, png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return model.ErrNotFound
	}
	p.CountersignPNG = append([]byte(nil), png...)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpsertMapping(_ context.Context, code, packageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[packageID]; !ok {
		return model.ErrNotFound
	}
	m.mappings[code] = packageID
	return nil
}

func (m *Memory) GetMapping(_ context.Context, code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.mappings[code]
	if !ok {
		return "", model.ErrNotFound
	}
	return id, nil
}

func (m *Memory) ListMappings(_ context.Context) ([]model.JurisdictionMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.JurisdictionMapping, 0, len(m.mappings))
	for code, id := range m.mappings {
		out = append(out, model.JurisdictionMapping{Code: code, PackageID: id})
	}
	return out, nil
}

func (m *Memory) PutDocument(_ context.Context, d *model.DocumentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[d.PackageID]; !ok {
		return model.ErrNotFound
	}
	// Replace any previous upload for the same (package, type) pair.
	for id, existing := range m.documents {
		if existing.PackageID == d.PackageID && existing.ContractType == d.ContractType {
			delete(m.documents, id)
		}
	}
	cp := *d
	cp.Bytes = append([]byte(nil), d.Bytes...)
	m.documents[d.ID] = &cp
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id string) (*model.DocumentTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *d
	cp.Bytes = append([]byte(nil), d.Bytes...)
	return &cp, nil
}

func (m *Memory) GetDocumentByType(_ context.Context, packageID string, t model.ContractType) (*model.DocumentTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.documents {
		if d.PackageID == packageID && d.ContractType == t {
			cp := *d
			cp.Bytes = append([]byte(nil), d.Bytes...)
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *Memory) ListDocuments(_ context.Context, packageID string) ([]model.DocumentTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.DocumentTemplate
	for _, d := range m.documents {
		if d.PackageID == packageID {
			cp := *d
			cp.Bytes = nil // listings never carry blob content
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *Memory) CreateJob(_ context.Context, j *model.AssembledPackage, inputs []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	m.jobInputs[j.ID] = append([]byte(nil), inputs...)
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*model.AssembledPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	cp := *j
	cp.Bytes = append([]byte(nil), j.Bytes...)
	return &cp, nil
}

func (m *Memory) GetJobInputs(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.jobInputs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return append([]byte(nil), in...), nil
}

func (m *Memory) MarkJobProcessing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	if j.Status != model.StatusPending {
		return model.ErrJobNotReady
	}
	j.Status = model.StatusProcessing
	return nil
}

func (m *Memory) CompleteJob(_ context.Context, id string, pdfBytes []byte, pageCount int, hash, certificateID string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	if j.Terminal() {
		return model.ErrJobNotReady
	}
	j.Status = model.StatusCompleted
	j.Bytes = append([]byte(nil), pdfBytes...)
	j.Size = int64(len(pdfBytes))
	j.PageCount = pageCount
	j.SHA256 = hash
	j.CertificateID = certificateID
	j.CompletedAt = &completedAt
	return nil
}

func (m *Memory) FailJob(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	if j.Terminal() {
		return model.ErrJobNotReady
	}
	now := time.Now().UTC()
	j.Status = model.StatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

func (m *Memory) FailInterruptedJobs(_ context.Context, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, j := range m.jobs {
		if j.Status != model.StatusProcessing {
			continue
		}
		t := now
		j.Status = model.StatusFailed
		j.ErrorMessage = message
		j.CompletedAt = &t
		n++
	}
	return n, nil
}

// TamperJob flips one byte of a stored package blob without touching its
// hash. Test hook for the integrity gate; never called by production code.
func (m *Memory) TamperJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok && len(j.Bytes) > 0 {
		j.Bytes[len(j.Bytes)/2] ^= 0xFF
	}
}
