package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/rs/zerolog"
)

// positionsColumns is the list of columns for the positions table.
// Column order must match scanPosition().
const positionsColumns = `id, account_id, symbol, name, category, shares, cost_basis_total,
cost_basis_per_share, current_price, current_value, unrealized_gain_loss, realized_gain_loss,
created_at, updated_at`

// PositionFilter narrows List. Zero fields do not filter.
type PositionFilter struct {
	AccountIDs []string
}

// PositionRepository handles position persistence
type PositionRepository struct {
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Create inserts a new position with its initial derived figures
func (r *PositionRepository) Create(ctx context.Context, q database.Querier, p *Position) error {
	query := `
		INSERT INTO positions
		(id, account_id, symbol, name, category, shares, cost_basis_total, cost_basis_per_share,
		 current_price, current_value, unrealized_gain_loss, realized_gain_loss, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.AccountID,
		strings.ToUpper(strings.TrimSpace(p.Symbol)),
		p.Name,
		string(p.Category),
		p.Shares,
		p.CostBasisTotal,
		p.CostBasisPerShare,
		p.CurrentPrice,
		p.CurrentValue,
		p.UnrealizedGain,
		p.RealizedGain,
		p.CreatedAt.Unix(),
		p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetByID retrieves a position, or a NotFound error
func (r *PositionRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Position, error) {
	row := q.QueryRowContext(ctx, "SELECT "+positionsColumns+" FROM positions WHERE id = ?", id)

	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("position", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", id, err)
	}
	return &p, nil
}

// UpdateDerived writes the figures the recompute step owns. Shares and cost
// basis change only through this method.
func (r *PositionRepository) UpdateDerived(ctx context.Context, q database.Querier, p *Position) error {
	query := `
		UPDATE positions SET
			shares = ?, cost_basis_total = ?, cost_basis_per_share = ?, current_value = ?,
			unrealized_gain_loss = ?, realized_gain_loss = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, query,
		p.Shares,
		p.CostBasisTotal,
		p.CostBasisPerShare,
		p.CurrentValue,
		p.UnrealizedGain,
		p.RealizedGain,
		p.UpdatedAt.Unix(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position figures: %w", err)
	}
	return requireOneRow(result, "position", p.ID)
}

// UpdatePrice writes the current price and the figures that depend on it,
// leaving shares and cost basis alone.
func (r *PositionRepository) UpdatePrice(ctx context.Context, q database.Querier, p *Position) error {
	query := `
		UPDATE positions SET
			current_price = ?, current_value = ?, unrealized_gain_loss = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, query,
		p.CurrentPrice,
		p.CurrentValue,
		p.UnrealizedGain,
		p.UpdatedAt.Unix(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position price: %w", err)
	}
	return requireOneRow(result, "position", p.ID)
}

// List returns positions matching the filter ordered by symbol then id
func (r *PositionRepository) List(ctx context.Context, q database.Querier, filter PositionFilter) ([]Position, error) {
	query := "SELECT " + positionsColumns + " FROM positions"
	var args []any

	if len(filter.AccountIDs) > 0 {
		query += " WHERE account_id IN (" + placeholders(len(filter.AccountIDs)) + ")"
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY symbol ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

func scanPosition(row rowScanner) (Position, error) {
	var (
		p         Position
		category  string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.Symbol,
		&p.Name,
		&category,
		&p.Shares,
		&p.CostBasisTotal,
		&p.CostBasisPerShare,
		&p.CurrentPrice,
		&p.CurrentValue,
		&p.UnrealizedGain,
		&p.RealizedGain,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Position{}, err
	}

	p.Category = Category(category)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return p, nil
}
