package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// Create persists the channel row and its participants in participant order.
// A second individual channel for the same pair fails with ErrChannelExists.
func (r *ChannelRepo) Create(ctx context.Context, tx pgx.Tx, ch model.Channel) (model.Channel, error) {
	if len(ch.Participants) == 0 {
		return model.Channel{}, fmt.Errorf("channel requires participants")
	}
	if err := requireTx(tx); err != nil {
		return model.Channel{}, err
	}

	var pairLow, pairHigh *int64
	if ch.IsIndividual() {
		if len(ch.Participants) != 2 {
			return model.Channel{}, fmt.Errorf("individual channel requires two participants")
		}
		low, high := model.PairKey(ch.Participants[0].UserID, ch.Participants[1].UserID)
		pairLow, pairHigh = &low, &high
	}

	err := tx.QueryRow(ctx, `
INSERT INTO chat_channels (
	type,
	name,
	image,
	pair_low,
	pair_high,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT DO NOTHING
RETURNING id, created_at, updated_at
`, string(ch.Type), ch.Name, ch.Image, pairLow, pairHigh).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, repo.ErrChannelExists
		}
		return model.Channel{}, fmt.Errorf("create channel: %w", err)
	}

	for i := range ch.Participants {
		ch.Participants[i].ChannelID = ch.ID
		joined, err := r.insertParticipant(ctx, tx, ch.Participants[i])
		if err != nil {
			return model.Channel{}, err
		}
		ch.Participants[i] = joined
	}

	return ch, nil
}

func (r *ChannelRepo) FindByID(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error) {
	return r.findByID(ctx, tx, channelID, false)
}

// FindByIDForUpdate locks the channel row until the transaction ends.
func (r *ChannelRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, channelID int64) (model.Channel, error) {
	return r.findByID(ctx, tx, channelID, true)
}

func (r *ChannelRepo) findByID(ctx context.Context, tx pgx.Tx, channelID int64, lock bool) (model.Channel, error) {
	if channelID <= 0 {
		return model.Channel{}, repo.ErrChannelNotFound
	}
	if err := requireTx(tx); err != nil {
		return model.Channel{}, err
	}

	query := `
SELECT id, type, name, image, created_at, updated_at
FROM chat_channels
WHERE id = $1
`
	if lock {
		query += "FOR UPDATE\n"
	}

	var (
		ch      model.Channel
		rawType string
	)
	err := tx.QueryRow(ctx, query, channelID).Scan(&ch.ID, &rawType, &ch.Name, &ch.Image, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, repo.ErrChannelNotFound
		}
		return model.Channel{}, fmt.Errorf("find channel: %w", err)
	}
	if ch.Type, err = enums.ParseChannelType(rawType); err != nil {
		return model.Channel{}, fmt.Errorf("decode channel %d: %w", ch.ID, err)
	}

	byChannel, err := r.loadParticipants(ctx, tx, []int64{ch.ID})
	if err != nil {
		return model.Channel{}, err
	}
	ch.Participants = byChannel[ch.ID]

	return ch, nil
}

// ListForUser returns every channel userID participates in, oldest first.
func (r *ChannelRepo) ListForUser(ctx context.Context, tx pgx.Tx, userID int64) ([]model.Channel, error) {
	return r.listForUser(ctx, tx, userID, "")
}

func (r *ChannelRepo) ListIndividualForUser(ctx context.Context, tx pgx.Tx, userID int64) ([]model.Channel, error) {
	return r.listForUser(ctx, tx, userID, enums.ChannelTypeIndividual)
}

func (r *ChannelRepo) listForUser(ctx context.Context, tx pgx.Tx, userID int64, channelType enums.ChannelType) ([]model.Channel, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if err := requireTx(tx); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT c.id, c.type, c.name, c.image, c.created_at, c.updated_at
FROM chat_channels c
WHERE EXISTS (
		SELECT 1
		FROM chat_participants p
		WHERE p.channel_id = c.id AND p.user_id = $1
	)
	AND ($2 = '' OR c.type = $2)
ORDER BY c.id ASC
`, userID, string(channelType))
	if err != nil {
		return nil, fmt.Errorf("list user channels: %w", err)
	}
	defer rows.Close()

	items := make([]model.Channel, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var (
			ch      model.Channel
			rawType string
		)
		if err := rows.Scan(&ch.ID, &rawType, &ch.Name, &ch.Image, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if ch.Type, err = enums.ParseChannelType(rawType); err != nil {
			return nil, fmt.Errorf("decode channel %d: %w", ch.ID, err)
		}
		items = append(items, ch)
		ids = append(ids, ch.ID)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate channels: %w", rows.Err())
	}
	rows.Close()

	if len(ids) == 0 {
		return items, nil
	}

	byChannel, err := r.loadParticipants(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Participants = byChannel[items[i].ID]
	}

	return items, nil
}

func (r *ChannelRepo) loadParticipants(ctx context.Context, tx pgx.Tx, channelIDs []int64) (map[int64][]model.Participant, error) {
	rows, err := tx.Query(ctx, `
SELECT channel_id, user_id, role, joined_at
FROM chat_participants
WHERE channel_id = ANY($1)
ORDER BY channel_id ASC, seq ASC
`, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("list channel participants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]model.Participant, len(channelIDs))
	for rows.Next() {
		var (
			p       model.Participant
			rawRole string
		)
		if err := rows.Scan(&p.ChannelID, &p.UserID, &rawRole, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if p.Role, err = enums.ParseParticipantRole(rawRole); err != nil {
			return nil, fmt.Errorf("decode participant of channel %d: %w", p.ChannelID, err)
		}
		out[p.ChannelID] = append(out[p.ChannelID], p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate participants: %w", rows.Err())
	}

	return out, nil
}

func (r *ChannelRepo) UpdateDetails(ctx context.Context, tx pgx.Tx, channelID int64, name, image string) error {
	if err := requireTx(tx); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `
UPDATE chat_channels
SET name = $2,
	image = $3,
	updated_at = NOW()
WHERE id = $1
`, channelID, name, image)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repo.ErrChannelNotFound
	}

	return nil
}

func (r *ChannelRepo) AddParticipant(ctx context.Context, tx pgx.Tx, p model.Participant) (model.Participant, error) {
	if err := requireTx(tx); err != nil {
		return model.Participant{}, err
	}
	return r.insertParticipant(ctx, tx, p)
}

func (r *ChannelRepo) insertParticipant(ctx context.Context, tx pgx.Tx, p model.Participant) (model.Participant, error) {
	if p.ChannelID <= 0 || p.UserID <= 0 {
		return model.Participant{}, fmt.Errorf("invalid participant payload")
	}

	if err := tx.QueryRow(ctx, `
INSERT INTO chat_participants (
	channel_id,
	user_id,
	role,
	joined_at
) VALUES ($1, $2, $3, NOW())
ON CONFLICT (channel_id, user_id) DO UPDATE SET
	role = EXCLUDED.role
RETURNING joined_at
`, p.ChannelID, p.UserID, string(p.Role)).Scan(&p.JoinedAt); err != nil {
		return model.Participant{}, fmt.Errorf("add participant: %w", err)
	}

	return p, nil
}

func (r *ChannelRepo) RemoveParticipant(ctx context.Context, tx pgx.Tx, channelID, userID int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	result, err := tx.Exec(ctx, `
DELETE FROM chat_participants
WHERE channel_id = $1 AND user_id = $2
`, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("remove participant: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *ChannelRepo) SetParticipantRole(ctx context.Context, tx pgx.Tx, channelID, userID int64, role enums.ParticipantRole) error {
	if err := requireTx(tx); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `
UPDATE chat_participants
SET role = $3
WHERE channel_id = $1 AND user_id = $2
`, channelID, userID, string(role))
	if err != nil {
		return fmt.Errorf("set participant role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d not found in channel %d", userID, channelID)
	}

	return nil
}

func (r *ChannelRepo) Delete(ctx context.Context, tx pgx.Tx, channelID int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	result, err := tx.Exec(ctx, `DELETE FROM chat_channels WHERE id = $1`, channelID)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
