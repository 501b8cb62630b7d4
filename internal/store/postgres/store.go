package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"turnero/kiosk-service/internal/models"
	"turnero/kiosk-service/internal/store"
	"turnero/kiosk-service/internal/ticket"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultVerifyTTL = 2 * time.Hour

type Store struct {
	pool      *pgxpool.Pool
	codes     *ticket.Generator
	schema    Schema
	verifyTTL time.Duration
}

type Options struct {
	Schema    Schema
	VerifyTTL time.Duration
}

func NewStore(pool *pgxpool.Pool, codes *ticket.Generator, options Options) *Store {
	ttl := options.VerifyTTL
	if ttl <= 0 {
		ttl = defaultVerifyTTL
	}
	return &Store{
		pool:      pool,
		codes:     codes,
		schema:    options.Schema.withDefaults(),
		verifyTTL: ttl,
	}
}

func (s *Store) FindClientByIdentity(ctx context.Context, identity string) (models.Client, bool, error) {
	var client models.Client
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT client_id, identity, given_name, family_name, COALESCE(vulnerable, FALSE)
		FROM %s
		WHERE identity = $1
	`, s.schema.ClientsTable), identity)
	if err := row.Scan(&client.ClientID, &client.Identity, &client.GivenName, &client.FamilyName, &client.Vulnerable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Client{}, false, nil
		}
		return models.Client{}, false, err
	}
	return client, true, nil
}

func (s *Store) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT category_id, COALESCE(account_id, ''), name, COALESCE(description, ''), COALESCE(%s, 0)
		FROM %s
		WHERE active = TRUE
		ORDER BY name ASC
	`, s.schema.CategoryAvgColumn, s.schema.CategoriesTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.CategoryID, &category.AccountID, &category.Name, &category.Description, &category.AvgServiceSeconds); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) ListActiveKiosks(ctx context.Context) ([]models.Kiosk, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT kiosk_id, code, branch_id
		FROM %s
		WHERE active = TRUE
		ORDER BY code ASC
	`, s.schema.KiosksTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kiosks []models.Kiosk
	for rows.Next() {
		var kiosk models.Kiosk
		if err := rows.Scan(&kiosk.KioskID, &kiosk.Code, &kiosk.BranchID); err != nil {
			return nil, err
		}
		kiosks = append(kiosks, kiosk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return kiosks, nil
}

func (s *Store) CreateTurn(ctx context.Context, input store.CreateTurnInput) (models.Turn, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Turn{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := s.findTurnByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.Turn{}, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Turn{}, err
		}
		return existing, nil
	}

	if err = s.ensureClientExists(ctx, tx, input.ClientID); err != nil {
		return models.Turn{}, err
	}

	avgSeconds, err := s.lookupCategoryAverage(ctx, tx, input.CategoryID)
	if err != nil {
		return models.Turn{}, err
	}

	kioskBranch, err := s.lookupKioskBranch(ctx, tx, input.KioskID)
	if err != nil {
		return models.Turn{}, err
	}
	// A turn is always stamped with the chosen kiosk's own branch.
	if input.BranchID != "" && input.BranchID != kioskBranch {
		err = store.ErrBranchNotFound
		return models.Turn{}, err
	}

	seq, err := s.nextTurnSequence(ctx, tx, kioskBranch, input.CategoryID)
	if err != nil {
		return models.Turn{}, err
	}
	code := ticket.FormatCode(s.codes.Prefix(), seq)

	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	verifyExpires := issuedAt.Add(s.verifyTTL)

	turn := models.Turn{
		TurnID:               uuid.NewString(),
		Code:                 code,
		Sequence:             seq,
		ClientID:             input.ClientID,
		CategoryID:           input.CategoryID,
		BranchID:             kioskBranch,
		KioskID:              input.KioskID,
		PriorityProfileID:    input.PriorityProfileID,
		State:                models.StateWaiting,
		EstimatedWaitSeconds: models.EstimatedWaitSeconds(avgSeconds),
		IssuedAt:             issuedAt,
		IssuedDay:            issuedAt.Format("2006-01-02"),
		VerifyHash:           s.codes.VerificationToken(),
		VerifyExpiresAt:      &verifyExpires,
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			turn_id, request_id, code, sequence, client_id, category_id, branch_id, kiosk_id,
			priority_profile_id, state, recovered, estimated_wait_seconds, issued_at, issued_day,
			verify_hash, verify_expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING turn_id, code, sequence, state, issued_at
	`, s.schema.TurnsTable),
		turn.TurnID, input.RequestID, turn.Code, turn.Sequence, turn.ClientID, turn.CategoryID,
		turn.BranchID, turn.KioskID, nullIfEmpty(turn.PriorityProfileID), turn.State, false,
		turn.EstimatedWaitSeconds, turn.IssuedAt, turn.IssuedAt, turn.VerifyHash, verifyExpires)
	if err = row.Scan(&turn.TurnID, &turn.Code, &turn.Sequence, &turn.State, &turn.IssuedAt); err != nil {
		return models.Turn{}, err
	}

	if err = s.insertOutboxEvent(ctx, tx, "turn.created", turn); err != nil {
		return models.Turn{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Turn{}, err
	}
	return turn, nil
}

func (s *Store) FindLostTurnByCode(ctx context.Context, code string) (store.LostTurn, bool, error) {
	var lost store.LostTurn
	var givenName, familyName string
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, c.identity, c.given_name, c.family_name
		FROM %s t
		JOIN %s c ON c.client_id = t.client_id
		WHERE t.code = $1 AND t.state = $2
		ORDER BY t.issued_at DESC
		LIMIT 1
	`, turnColumns("t."), s.schema.TurnsTable, s.schema.ClientsTable), code, models.StateLost)

	turn, err := scanTurn(row, &lost.OwnerIdentity, &givenName, &familyName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.LostTurn{}, false, nil
		}
		return store.LostTurn{}, false, err
	}
	lost.Turn = turn
	lost.OwnerName = models.Client{GivenName: givenName, FamilyName: familyName}.DisplayName()
	return lost, true, nil
}

func (s *Store) ReactivateTurn(ctx context.Context, input store.ReactivateTurnInput) (models.Turn, error) {
	if !store.ValidTransition("reactivate", models.StateLost) {
		return models.Turn{}, store.ErrInvalidState
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Turn{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	recoveredAt := input.RecoveredAt
	if recoveredAt.IsZero() {
		recoveredAt = time.Now().UTC()
	}

	// The state guard in the UPDATE is the only safeguard against a
	// concurrent recovery or operator action; a check-then-write would race.
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET state = $2,
			recovered = TRUE,
			recovered_at = $3
		WHERE turn_id = $1 AND state = $4
		RETURNING %s
	`, s.schema.TurnsTable, turnColumns("")),
		input.TurnID, models.StateWaiting, recoveredAt, models.StateLost)

	turn, err := scanTurn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_, exists, err = s.loadTurnState(ctx, tx, input.TurnID)
			if err != nil {
				return models.Turn{}, err
			}
			if !exists {
				err = store.ErrTurnNotFound
				return models.Turn{}, err
			}
			err = store.ErrInvalidState
			return models.Turn{}, err
		}
		return models.Turn{}, err
	}

	if err = s.insertOutboxEvent(ctx, tx, "turn.recovered", turn); err != nil {
		return models.Turn{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Turn{}, err
	}
	return turn, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT event_id, type, payload_json, created_at
		FROM %s
	`, s.schema.OutboxTable)
	args := []interface{}{}
	if !after.IsZero() {
		query += " WHERE created_at > $1 ORDER BY created_at ASC LIMIT $2"
		args = append(args, after, limit)
	} else {
		query += " ORDER BY created_at ASC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) findTurnByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.Turn, bool, error) {
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE request_id = $1
	`, turnColumns(""), s.schema.TurnsTable), requestID)
	turn, err := scanTurn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Turn{}, false, nil
		}
		return models.Turn{}, false, err
	}
	return turn, true, nil
}

func (s *Store) ensureClientExists(ctx context.Context, tx pgx.Tx, clientID string) error {
	var id string
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT client_id FROM %s WHERE client_id = $1
	`, s.schema.ClientsTable), clientID)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrClientNotFound
		}
		return err
	}
	return nil
}

func (s *Store) lookupCategoryAverage(ctx context.Context, tx pgx.Tx, categoryID string) (int, error) {
	var avgSeconds int
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT COALESCE(%s, 0)
		FROM %s
		WHERE category_id = $1 AND active = TRUE
	`, s.schema.CategoryAvgColumn, s.schema.CategoriesTable), categoryID)
	if err := row.Scan(&avgSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrCategoryNotFound
		}
		return 0, err
	}
	return avgSeconds, nil
}

func (s *Store) lookupKioskBranch(ctx context.Context, tx pgx.Tx, kioskID string) (string, error) {
	var branchID string
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT branch_id
		FROM %s
		WHERE kiosk_id = $1 AND active = TRUE
	`, s.schema.KiosksTable), kioskID)
	if err := row.Scan(&branchID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrKioskNotFound
		}
		return "", err
	}
	return branchID, nil
}

func (s *Store) loadTurnState(ctx context.Context, tx pgx.Tx, turnID string) (string, bool, error) {
	var state string
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT state FROM %s WHERE turn_id = $1
	`, s.schema.TurnsTable), turnID)
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return state, true, nil
}

func (s *Store) nextTurnSequence(ctx context.Context, tx pgx.Tx, branchID, categoryID string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (branch_id, category_id, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (branch_id, category_id)
		DO UPDATE SET next_number = %s.next_number + 1
		RETURNING next_number
	`, s.schema.SequencesTable, s.schema.SequencesTable), branchID, categoryID)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, turn models.Turn) error {
	payload := map[string]interface{}{
		"turn_id":      turn.TurnID,
		"code":         turn.Code,
		"state":        turn.State,
		"client_id":    turn.ClientID,
		"category_id":  turn.CategoryID,
		"branch_id":    turn.BranchID,
		"kiosk_id":     turn.KioskID,
		"recovered":    turn.Recovered,
		"issued_at":    turn.IssuedAt,
		"recovered_at": turn.RecoveredAt,
	}
	payloadJSON, err := jsonBytes(payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (event_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.schema.OutboxTable), uuid.NewString(), eventType, payloadJSON, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.insertTurnEvent(ctx, tx, turn.TurnID, eventType, payloadJSON)
}

func (s *Store) insertTurnEvent(ctx context.Context, tx pgx.Tx, turnID, eventType string, payload []byte) error {
	var prevHash sql.NullString
	var prevSeq sql.NullInt64
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT hash, turn_seq
		FROM %s
		WHERE turn_id = $1
		ORDER BY turn_seq DESC
		LIMIT 1
	`, s.schema.TurnEventsTable), turnID)
	if err := row.Scan(&prevHash, &prevSeq); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	seq := int(prevSeq.Int64) + 1
	createdAt := time.Now().UTC()
	hash := store.ComputeTurnEventHash(prevHash.String, turnID, eventType, payload, createdAt, seq)

	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (turn_id, turn_seq, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.schema.TurnEventsTable), turnID, seq, eventType, payload, createdAt, prevHash.String, hash)
	return err
}
