package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/model"
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, tx pgx.Tx, reporterID, reportedID int64, reason string) (model.Report, error) {
	if reporterID <= 0 || reportedID <= 0 || reporterID == reportedID {
		return model.Report{}, fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(reason) == "" {
		return model.Report{}, fmt.Errorf("report reason is required")
	}
	if err := requireTx(tx); err != nil {
		return model.Report{}, err
	}

	rep := model.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     strings.TrimSpace(reason),
	}
	if err := tx.QueryRow(ctx, `
INSERT INTO reports (
	reporter_id,
	reported_id,
	reason,
	created_at
) VALUES ($1, $2, $3, NOW())
RETURNING id, created_at
`, rep.ReporterID, rep.ReportedID, rep.Reason).Scan(&rep.ID, &rep.CreatedAt); err != nil {
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}

	return rep, nil
}

func (r *ReportRepo) DeleteForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `
DELETE FROM reports
WHERE reporter_id = $1 OR reported_id = $1
`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user reports: %w", err)
	}

	return result.RowsAffected(), nil
}
