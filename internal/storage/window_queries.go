package storage

import (
	"fmt"
	"strings"
)

func TransactionCountByEmailQuery(w Window) string {
	return fmt.Sprintf(countByEmailTemplate, w.StartOp(), w.EndOp())
}

func TransactionCountByEmailAndStatusQuery(w Window) string {
	return fmt.Sprintf(countByEmailAndStatusTemplate, w.StartOp(), w.EndOp())
}

func SQLiteTransactionCountByEmailQuery(w Window) string {
	return fmt.Sprintf(sqliteCountByEmailTemplate, w.StartOp(), w.EndOp())
}

// SQLiteTransactionCountByEmailAndStatusQuery expands one placeholder per status.
func SQLiteTransactionCountByEmailAndStatusQuery(w Window, statuses int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", statuses), ", ")
	return fmt.Sprintf(sqliteCountByEmailAndStatusTemplate, placeholders, w.StartOp(), w.EndOp())
}
