package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-contractpack/internal/model"
)

// Postgres is the production Store backed by pgxpool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Connect builds a pgx pool from the DSN and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (s *Postgres) CreatePackage(ctx context.Context, p *model.PackageDefinition) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if p.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE contract_packages SET is_default=false WHERE is_default`); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `
INSERT INTO contract_packages(id,name,is_default,cancellation_days,signing_client_id,countersign_png,created_at,updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$7)`,
		p.ID, p.Name, p.IsDefault, p.CancellationDays, p.SigningClientID, p.CountersignPNG, p.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) UpdatePackage(ctx context.Context, p *model.PackageDefinition) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if p.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE contract_packages SET is_default=false WHERE is_default AND id<>$1`, p.ID); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `
UPDATE contract_packages
SET name=$2, is_default=$3, cancellation_days=$4, signing_client_id=$5, updated_at=now()
WHERE id=$1`,
		p.ID, p.Name, p.IsDefault, p.CancellationDays, p.SigningClientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return tx.Commit(ctx)
}

const packageCols = `id,name,is_default,cancellation_days,signing_client_id,countersign_png,created_at,updated_at`

func scanPackage(row pgx.Row) (*model.PackageDefinition, error) {
	var p model.PackageDefinition
	err := row.Scan(&p.ID, &p.Name, &p.IsDefault, &p.CancellationDays, &p.SigningClientID, &p.CountersignPNG, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) GetPackage(ctx context.Context, id string) (*model.PackageDefinition, error) {
	return scanPackage(s.db.QueryRow(ctx, `SELECT `+packageCols+` FROM contract_packages WHERE id=$1`, id))
}

func (s *Postgres) DefaultPackage(ctx context.Context) (*model.PackageDefinition, error) {
	return scanPackage(s.db.QueryRow(ctx, `SELECT `+packageCols+` FROM contract_packages WHERE is_default LIMIT 1`))
}

func (s *Postgres) ListPackages(ctx context.Context) ([]model.PackageDefinition, error) {
	rows, err := s.db.Query(ctx, `SELECT `+packageCols+` FROM contract_packages ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PackageDefinition
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Postgres) SetCountersignImage(ctx context.Context, id string, png []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE contract_packages SET countersign_png=$2, updated_at=now() WHERE id=$1`, id, png)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Postgres) UpsertMapping(ctx context.Context, code, packageID string) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO jurisdiction_mappings(code,package_id) VALUES($1,$2)
ON CONFLICT (code) DO UPDATE SET package_id=$2`, code, packageID)
	return err
}

func (s *Postgres) GetMapping(ctx context.Context, code string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT package_id FROM jurisdiction_mappings WHERE code=$1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrNotFound
	}
	return id, err
}

func (s *Postgres) ListMappings(ctx context.Context) ([]model.JurisdictionMapping, error) {
	rows, err := s.db.Query(ctx, `SELECT code,package_id FROM jurisdiction_mappings ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.JurisdictionMapping
	for rows.Next() {
		var m model.JurisdictionMapping
		if err := rows.Scan(&m.Code, &m.PackageID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) PutDocument(ctx context.Context, d *model.DocumentTemplate) error {
	placements, err := json.Marshal(d.Placements)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(d.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO contract_documents(id,package_id,contract_type,filename,byte_size,mime_type,sha256,placements,fields,content,uploaded_by,created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9::jsonb,$10,$11,$12)
ON CONFLICT (package_id,contract_type) DO UPDATE SET
  id=$1, filename=$4, byte_size=$5, mime_type=$6, sha256=$7,
  placements=$8::jsonb, fields=$9::jsonb, content=$10, uploaded_by=$11, created_at=$12`,
		d.ID, d.PackageID, d.ContractType, d.Filename, d.Size, d.MIMEType, d.SHA256,
		string(placements), string(fields), d.Bytes, d.UploadedBy, d.CreatedAt)
	return err
}

const documentCols = `id,package_id,contract_type,filename,byte_size,mime_type,sha256,placements,fields,content,uploaded_by,created_at`

func scanDocument(row pgx.Row) (*model.DocumentTemplate, error) {
	var d model.DocumentTemplate
	var placements, fields []byte
	err := row.Scan(&d.ID, &d.PackageID, &d.ContractType, &d.Filename, &d.Size, &d.MIMEType,
		&d.SHA256, &placements, &fields, &d.Bytes, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(placements, &d.Placements); err != nil {
		return nil, fmt.Errorf("decode placements for document %s: %w", d.ID, err)
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &d.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for document %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

func (s *Postgres) GetDocument(ctx context.Context, id string) (*model.DocumentTemplate, error) {
	return scanDocument(s.db.QueryRow(ctx, `SELECT `+documentCols+` FROM contract_documents WHERE id=$1`, id))
}

func (s *Postgres) GetDocumentByType(ctx context.Context, packageID string, t model.ContractType) (*model.DocumentTemplate, error) {
	return scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentCols+` FROM contract_documents WHERE package_id=$1 AND contract_type=$2`, packageID, t))
}

func (s *Postgres) ListDocuments(ctx context.Context, packageID string) ([]model.DocumentTemplate, error) {
	rows, err := s.db.Query(ctx, `
SELECT id,package_id,contract_type,filename,byte_size,mime_type,sha256,placements,fields,uploaded_by,created_at
FROM contract_documents WHERE package_id=$1 ORDER BY contract_type`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DocumentTemplate
	for rows.Next() {
		var d model.DocumentTemplate
		var placements, fields []byte
		if err := rows.Scan(&d.ID, &d.PackageID, &d.ContractType, &d.Filename, &d.Size, &d.MIMEType,
			&d.SHA256, &placements, &fields, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(placements, &d.Placements); err != nil {
			return nil, fmt.Errorf("decode placements for document %s: %w", d.ID, err)
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &d.Fields); err != nil {
				return nil, fmt.Errorf("decode fields for document %s: %w", d.ID, err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateJob(ctx context.Context, j *model.AssembledPackage, inputs []byte) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO assembled_packages(id,tracking_id,status,submitted_by,inputs,created_at)
VALUES($1,$2,$3,$4,$5::jsonb,$6)`,
		j.ID, j.TrackingID, j.Status, j.SubmittedBy, string(inputs), j.CreatedAt)
	return err
}

func (s *Postgres) GetJob(ctx context.Context, id string) (*model.AssembledPackage, error) {
	var j model.AssembledPackage
	err := s.db.QueryRow(ctx, `
SELECT id,tracking_id,status,COALESCE(certificate_id,''),content,COALESCE(byte_size,0),COALESCE(page_count,0),
       COALESCE(sha256,''),COALESCE(error_message,''),submitted_by,created_at,completed_at
FROM assembled_packages WHERE id=$1`, id).
		Scan(&j.ID, &j.TrackingID, &j.Status, &j.CertificateID, &j.Bytes, &j.Size, &j.PageCount,
			&j.SHA256, &j.ErrorMessage, &j.SubmittedBy, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Postgres) GetJobInputs(ctx context.Context, id string) ([]byte, error) {
	var in []byte
	err := s.db.QueryRow(ctx, `SELECT inputs FROM assembled_packages WHERE id=$1`, id).Scan(&in)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	return in, err
}

// jobGuardError distinguishes a missing job from one whose status guard
// rejected the transition.
func (s *Postgres) jobGuardError(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM assembled_packages WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return model.ErrJobNotReady
}

func (s *Postgres) MarkJobProcessing(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE assembled_packages SET status=$2 WHERE id=$1 AND status=$3`,
		id, model.StatusProcessing, model.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.jobGuardError(ctx, id)
	}
	return nil
}

func (s *Postgres) CompleteJob(ctx context.Context, id string, pdfBytes []byte, pageCount int, hash, certificateID string, completedAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE assembled_packages
SET status=$2, content=$3, byte_size=$4, page_count=$5, sha256=$6, certificate_id=$7, completed_at=$8
WHERE id=$1 AND status=$9`,
		id, model.StatusCompleted, pdfBytes, len(pdfBytes), pageCount, hash, certificateID, completedAt, model.StatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.jobGuardError(ctx, id)
	}
	return nil
}

func (s *Postgres) FailJob(ctx context.Context, id, message string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE assembled_packages
SET status=$2, error_message=$3, completed_at=now()
WHERE id=$1 AND status NOT IN ($4,$5)`,
		id, model.StatusFailed, message, model.StatusCompleted, model.StatusFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.jobGuardError(ctx, id)
	}
	return nil
}

func (s *Postgres) FailInterruptedJobs(ctx context.Context, message string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE assembled_packages
SET status=$1, error_message=$2, completed_at=now()
WHERE status=$3`,
		model.StatusFailed, message, model.StatusProcessing)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
