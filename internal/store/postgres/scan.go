package postgres

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"turnero/kiosk-service/internal/models"

	"github.com/jackc/pgx/v5"
)

var turnColumnNames = []string{
	"turn_id", "code", "sequence", "client_id", "category_id", "branch_id", "kiosk_id",
	"priority_profile_id", "state", "recovered", "estimated_wait_seconds", "issued_at",
	"issued_day", "called_at", "attended_at", "finished_at", "lost_at", "recovered_at",
	"verify_hash", "verify_expires_at",
}

func turnColumns(prefix string) string {
	if prefix == "" {
		return strings.Join(turnColumnNames, ", ")
	}
	prefixed := make([]string, len(turnColumnNames))
	for i, name := range turnColumnNames {
		prefixed[i] = prefix + name
	}
	return strings.Join(prefixed, ", ")
}

func scanTurn(row pgx.Row, extra ...interface{}) (models.Turn, error) {
	var turn models.Turn
	var priorityNull sql.NullString
	var issuedDayNull sql.NullTime
	var calledAtNull sql.NullTime
	var attendedAtNull sql.NullTime
	var finishedAtNull sql.NullTime
	var lostAtNull sql.NullTime
	var recoveredAtNull sql.NullTime
	var verifyHashNull sql.NullString
	var verifyExpiresNull sql.NullTime

	targets := []interface{}{
		&turn.TurnID, &turn.Code, &turn.Sequence, &turn.ClientID, &turn.CategoryID,
		&turn.BranchID, &turn.KioskID, &priorityNull, &turn.State, &turn.Recovered,
		&turn.EstimatedWaitSeconds, &turn.IssuedAt, &issuedDayNull, &calledAtNull,
		&attendedAtNull, &finishedAtNull, &lostAtNull, &recoveredAtNull,
		&verifyHashNull, &verifyExpiresNull,
	}
	targets = append(targets, extra...)

	if err := row.Scan(targets...); err != nil {
		return models.Turn{}, err
	}

	if priorityNull.Valid {
		turn.PriorityProfileID = priorityNull.String
	}
	if issuedDayNull.Valid {
		turn.IssuedDay = issuedDayNull.Time.Format("2006-01-02")
	}
	turn.CalledAt = nullTimePtr(calledAtNull)
	turn.AttendedAt = nullTimePtr(attendedAtNull)
	turn.FinishedAt = nullTimePtr(finishedAtNull)
	turn.LostAt = nullTimePtr(lostAtNull)
	turn.RecoveredAt = nullTimePtr(recoveredAtNull)
	if verifyHashNull.Valid {
		turn.VerifyHash = verifyHashNull.String
	}
	turn.VerifyExpiresAt = nullTimePtr(verifyExpiresNull)
	return turn, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func jsonBytes(payload map[string]interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
